package app

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Capture", func() {
	var (
		device  *mockDevice
		stream  *mockStream
		capture *Capture
	)

	BeforeEach(func() {
		stream = &mockStream{frame: &mockFrame{width: 640, pngData: pngBytes}}
		device = &mockDevice{stream: stream}
		capture = NewCapture(device)
	})

	It("should start idle with no image", func() {
		Expect(capture.State()).To(Equal(StateIdle))
		_, held := capture.Image()
		Expect(held).To(BeFalse())
	})

	Describe("Start", func() {
		When("the camera opens", func() {
			It("should move to camera-active", func() {
				Expect(capture.Start(context.Background())).To(Succeed())
				Expect(capture.State()).To(Equal(StateCameraActive))
			})

			It("should clear any previously captured image", func() {
				Expect(capture.SelectFile(pngBytes, "")).To(Succeed())
				Expect(capture.Start(context.Background())).To(Succeed())
				_, held := capture.Image()
				Expect(held).To(BeFalse())
			})
		})

		When("a stream is already active", func() {
			var first *mockStream

			BeforeEach(func() {
				first = &mockStream{frame: &mockFrame{width: 640}}
				device.stream = first
				Expect(capture.Start(context.Background())).To(Succeed())
				device.stream = stream
			})

			It("should stop the old stream before holding the new one", func() {
				Expect(capture.Start(context.Background())).To(Succeed())
				Expect(first.stopped).To(BeTrue())
				Expect(stream.stopped).To(BeFalse())
			})
		})

		When("the camera fails to open", func() {
			BeforeEach(func() {
				device.openErr = errors.New("permission denied")
			})

			It("returns an error and goes back to idle", func() {
				err := capture.Start(context.Background())
				Expect(err).To(MatchError(ContainSubstring("permission denied")))
				Expect(capture.State()).To(Equal(StateIdle))
			})
		})
	})

	Describe("Snap", func() {
		When("the camera is not active", func() {
			It("returns an error", func() {
				Expect(capture.Snap()).To(HaveOccurred())
			})
		})

		When("the camera is active", func() {
			BeforeEach(func() {
				Expect(capture.Start(context.Background())).To(Succeed())
			})

			It("should capture a PNG data URL and release the stream", func() {
				Expect(capture.Snap()).To(Succeed())
				Expect(capture.State()).To(Equal(StateImageCaptured))

				image, held := capture.Image()
				Expect(held).To(BeTrue())
				Expect(image).To(HavePrefix("data:image/png;base64,"))
				Expect(stream.stopped).To(BeTrue())
			})

			When("the frame is not ready yet", func() {
				BeforeEach(func() {
					stream.frame.width = 0
				})

				It("returns an error and keeps the camera active", func() {
					err := capture.Snap()
					Expect(err).To(MatchError(ContainSubstring("not ready")))
					Expect(capture.State()).To(Equal(StateCameraActive))
					Expect(stream.stopped).To(BeFalse())
				})
			})

			When("reading the frame fails", func() {
				BeforeEach(func() {
					stream.frameErr = errors.New("device busy")
				})

				It("returns an error and keeps the camera active", func() {
					Expect(capture.Snap()).To(HaveOccurred())
					Expect(capture.State()).To(Equal(StateCameraActive))
				})
			})

			When("encoding the frame fails", func() {
				BeforeEach(func() {
					stream.frame.pngErr = errors.New("encode error")
				})

				It("returns an error", func() {
					Expect(capture.Snap()).To(HaveOccurred())
				})
			})
		})
	})

	Describe("SelectFile", func() {
		When("the file is an image", func() {
			It("should hold the image and move to image-captured", func() {
				Expect(capture.SelectFile(pngBytes, "image/png")).To(Succeed())
				Expect(capture.State()).To(Equal(StateImageCaptured))

				image, held := capture.Image()
				Expect(held).To(BeTrue())
				Expect(image).To(HavePrefix("data:image/png;base64,"))
			})

			It("should sniff the content type when none is given", func() {
				Expect(capture.SelectFile(pngBytes, "")).To(Succeed())
				image, _ := capture.Image()
				Expect(image).To(HavePrefix("data:image/png;base64,"))
			})

			It("should release an active stream", func() {
				Expect(capture.Start(context.Background())).To(Succeed())
				Expect(capture.SelectFile(pngBytes, "image/png")).To(Succeed())
				Expect(stream.stopped).To(BeTrue())
			})
		})

		When("the file is not an image", func() {
			It("returns an error and keeps the state", func() {
				err := capture.SelectFile([]byte("just some text"), "")
				Expect(err).To(HaveOccurred())
				Expect(capture.State()).To(Equal(StateIdle))
			})

			It("rejects an explicit non-image content type", func() {
				Expect(capture.SelectFile(pngBytes, "application/pdf")).To(HaveOccurred())
			})
		})
	})

	Describe("Stop", func() {
		BeforeEach(func() {
			Expect(capture.Start(context.Background())).To(Succeed())
		})

		It("should release the stream and go idle", func() {
			capture.Stop()
			Expect(capture.State()).To(Equal(StateIdle))
			Expect(stream.stopped).To(BeTrue())
		})
	})

	Describe("Retake", func() {
		BeforeEach(func() {
			Expect(capture.SelectFile(pngBytes, "")).To(Succeed())
		})

		It("should discard the image and go idle", func() {
			capture.Retake()
			Expect(capture.State()).To(Equal(StateIdle))
			_, held := capture.Image()
			Expect(held).To(BeFalse())
		})
	})

	Describe("Close", func() {
		It("should release an active stream", func() {
			Expect(capture.Start(context.Background())).To(Succeed())
			capture.Close()
			Expect(stream.stopped).To(BeTrue())
			Expect(capture.State()).To(Equal(StateIdle))
		})
	})
})

var _ = Describe("State", func() {
	It("should render readable names", func() {
		Expect(StateIdle.String()).To(Equal("idle"))
		Expect(StateCameraActive.String()).To(Equal("camera-active"))
		Expect(StateImageCaptured.String()).To(Equal("image-captured"))
	})
})
