package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/receiptpal/receiptpal/internal/client"
	"github.com/receiptpal/receiptpal/internal/store"
)

func TestApp(t *testing.T) {
	// Disable logging during tests
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))

	RegisterFailHandler(Fail)
	RunSpecs(t, "App Suite")
}

// pngBytes is a minimal PNG header, enough for content sniffing
var pngBytes = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}

// mockFrame is a mock implementation of Frame
type mockFrame struct {
	width   int
	pngData []byte
	pngErr  error
}

func (m *mockFrame) Width() int {
	return m.width
}

func (m *mockFrame) PNG() ([]byte, error) {
	if m.pngErr != nil {
		return nil, m.pngErr
	}
	return m.pngData, nil
}

// mockStream is a mock implementation of Stream
type mockStream struct {
	frame    *mockFrame
	frameErr error
	stopped  bool
}

func (m *mockStream) Frame() (Frame, error) {
	if m.frameErr != nil {
		return nil, m.frameErr
	}
	return m.frame, nil
}

func (m *mockStream) Stop() {
	m.stopped = true
}

// mockDevice is a mock implementation of Device
type mockDevice struct {
	stream  *mockStream
	openErr error
	opens   int
}

func (m *mockDevice) Open(ctx context.Context) (Stream, error) {
	m.opens++
	if m.openErr != nil {
		return nil, m.openErr
	}
	return m.stream, nil
}

// mockBackend is a mock implementation of Backend
type mockBackend struct {
	sessionID  string
	processErr error
	imageSent  string
	userSent   string

	chatReply   *client.Reply
	chatErr     error
	questionSet string
	sessionSent string

	saveURL   string
	passErr   error
	emailSent string
	passSent  *client.PassData
}

func (m *mockBackend) ProcessImage(ctx context.Context, imageDataURL, userID string) (string, error) {
	m.imageSent = imageDataURL
	m.userSent = userID
	if m.processErr != nil {
		return "", m.processErr
	}
	return m.sessionID, nil
}

func (m *mockBackend) Chat(ctx context.Context, question, userID, sessionID string) (*client.Reply, error) {
	m.questionSet = question
	m.sessionSent = sessionID
	if m.chatErr != nil {
		return nil, m.chatErr
	}
	return m.chatReply, nil
}

func (m *mockBackend) CreateWalletPass(ctx context.Context, email string, pass client.PassData) (string, error) {
	m.emailSent = email
	m.passSent = &pass
	if m.passErr != nil {
		return "", m.passErr
	}
	return m.saveURL, nil
}

// mockIdentity is a mock implementation of Identity
type mockIdentity struct {
	id string
	ok bool
}

func (m *mockIdentity) UserID() (string, bool) {
	return m.id, m.ok
}

// recordingNotifier collects every notification
type recordingNotifier struct {
	messages []string
}

func (r *recordingNotifier) Notify(message string) {
	r.messages = append(r.messages, message)
}

// recordingNavigator collects navigation targets
type recordingNavigator struct {
	urls []string
	err  error
}

func (r *recordingNavigator) Navigate(url string) error {
	r.urls = append(r.urls, url)
	return r.err
}

var _ = Describe("App", func() {
	var (
		backend   *mockBackend
		identity  *mockIdentity
		device    *mockDevice
		notifier  *recordingNotifier
		navigator *recordingNavigator
		app       *App
	)

	BeforeEach(func() {
		backend = &mockBackend{
			sessionID: "session-1",
			chatReply: &client.Reply{Type: "text", Text: "hello"},
			saveURL:   "https://pay.google.com/gp/v/save/token",
		}
		identity = &mockIdentity{id: "user-1", ok: true}
		device = &mockDevice{stream: &mockStream{frame: &mockFrame{width: 640, pngData: pngBytes}}}
		notifier = &recordingNotifier{}
		navigator = &recordingNavigator{}
		app = New(backend, identity, device, notifier, navigator)
	})

	Describe("Upload", func() {
		var err error

		JustBeforeEach(func() {
			err = app.Upload(context.Background())
		})

		When("no image has been captured", func() {
			It("returns an error", func() {
				Expect(err).To(HaveOccurred())
			})

			It("should tell the user to capture an image first", func() {
				Expect(notifier.messages).To(ConsistOf("Please capture or select a receipt image first."))
			})

			It("should not call the backend", func() {
				Expect(backend.imageSent).To(BeEmpty())
			})
		})

		When("sign-in is not ready", func() {
			BeforeEach(func() {
				Expect(app.Capture().SelectFile(pngBytes, "")).To(Succeed())
				identity.ok = false
			})

			It("returns an error", func() {
				Expect(err).To(HaveOccurred())
			})

			It("should tell the user sign-in is not ready", func() {
				Expect(notifier.messages).To(ConsistOf("Sign-in is not ready yet. Please try again in a moment."))
			})

			It("should not call the backend", func() {
				Expect(backend.imageSent).To(BeEmpty())
			})
		})

		When("the upload succeeds", func() {
			BeforeEach(func() {
				Expect(app.Capture().SelectFile(pngBytes, "")).To(Succeed())
			})

			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should send the captured image and user id", func() {
				Expect(backend.imageSent).To(HavePrefix("data:image/png;base64,"))
				Expect(backend.userSent).To(Equal("user-1"))
			})

			It("should retain the session id", func() {
				Expect(app.LastSessionID()).To(Equal("session-1"))
			})

			It("should clear the captured image", func() {
				_, held := app.Capture().Image()
				Expect(held).To(BeFalse())
				Expect(app.Capture().State()).To(Equal(StateIdle))
			})

			It("should confirm the upload to the user", func() {
				Expect(notifier.messages).To(ConsistOf("Receipt uploaded and analyzed successfully!"))
			})
		})

		When("the backend fails", func() {
			BeforeEach(func() {
				Expect(app.Capture().SelectFile(pngBytes, "")).To(Succeed())
				backend.processErr = errors.New("image too large")
			})

			It("returns an error", func() {
				Expect(err).To(HaveOccurred())
			})

			It("should surface the failure to the user", func() {
				Expect(notifier.messages).To(HaveLen(1))
				Expect(notifier.messages[0]).To(ContainSubstring("image too large"))
			})

			It("should keep the captured image for retry", func() {
				_, held := app.Capture().Image()
				Expect(held).To(BeTrue())
			})
		})
	})

	Describe("Ask", func() {
		var (
			question string
			err      error
		)

		BeforeEach(func() {
			question = "when did I buy eggs?"
		})

		JustBeforeEach(func() {
			err = app.Ask(context.Background(), question)
		})

		When("the question is blank", func() {
			BeforeEach(func() {
				question = "   "
			})

			It("returns an error", func() {
				Expect(err).To(HaveOccurred())
			})

			It("should ask the user for a question", func() {
				Expect(notifier.messages).To(ConsistOf("Please enter a question."))
			})
		})

		When("sign-in is not ready", func() {
			BeforeEach(func() {
				identity.ok = false
			})

			It("should tell the user sign-in is not ready", func() {
				Expect(err).To(HaveOccurred())
				Expect(notifier.messages).To(ConsistOf("Sign-in is not ready yet. Please try again in a moment."))
			})
		})

		When("the reply is plain text", func() {
			BeforeEach(func() {
				backend.chatReply = &client.Reply{Type: "text", Text: "You bought eggs on 2024-01-10."}
			})

			It("should store the answer", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(app.Answer()).To(Equal("You bought eggs on 2024-01-10."))
				Expect(app.Pass()).To(BeNil())
			})
		})

		When("the reply is a pass payload", func() {
			BeforeEach(func() {
				backend.chatReply = &client.Reply{
					Type: "PASS_BUILDER",
					Pass: &client.PassData{Items: []store.Item{{Name: "Milk", Quantity: 2}}},
				}
			})

			It("should store the pass and clear the answer", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(app.Pass()).NotTo(BeNil())
				Expect(app.Pass().Items).To(HaveLen(1))
				Expect(app.Answer()).To(BeEmpty())
			})
		})

		When("a session id is held from an earlier upload", func() {
			BeforeEach(func() {
				Expect(app.Capture().SelectFile(pngBytes, "")).To(Succeed())
				Expect(app.Upload(context.Background())).To(Succeed())
			})

			It("should echo the session id to the backend", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(backend.sessionSent).To(Equal("session-1"))
			})
		})

		When("the backend fails", func() {
			BeforeEach(func() {
				backend.chatErr = errors.New("model offline")
			})

			It("should surface the failure to the user", func() {
				Expect(err).To(HaveOccurred())
				Expect(notifier.messages).To(HaveLen(1))
				Expect(notifier.messages[0]).To(ContainSubstring("model offline"))
			})
		})
	})

	Describe("SubmitPass", func() {
		var (
			email string
			err   error
		)

		BeforeEach(func() {
			email = "shopper@example.com"
		})

		JustBeforeEach(func() {
			err = app.SubmitPass(context.Background(), email)
		})

		When("no pass is pending", func() {
			It("should tell the user there is nothing to save", func() {
				Expect(err).To(HaveOccurred())
				Expect(notifier.messages).To(ConsistOf("There is no grocery list to save."))
			})
		})

		When("a pass is pending", func() {
			BeforeEach(func() {
				backend.chatReply = &client.Reply{
					Type: "PASS_BUILDER",
					Pass: &client.PassData{Items: []store.Item{{Name: "Milk", Quantity: 2}}},
				}
				Expect(app.Ask(context.Background(), "make a list")).To(Succeed())
			})

			When("the email is invalid", func() {
				BeforeEach(func() {
					email = "not-an-email"
				})

				It("should ask for a valid email", func() {
					Expect(err).To(HaveOccurred())
					Expect(notifier.messages).To(ConsistOf("Please enter a valid email address."))
				})

				It("should not call the backend", func() {
					Expect(backend.emailSent).To(BeEmpty())
				})
			})

			When("pass creation succeeds", func() {
				It("should not return an error", func() {
					Expect(err).NotTo(HaveOccurred())
				})

				It("should send the pass and email", func() {
					Expect(backend.emailSent).To(Equal("shopper@example.com"))
					Expect(backend.passSent.Items).To(HaveLen(1))
				})

				It("should navigate to the save URL", func() {
					Expect(navigator.urls).To(ConsistOf("https://pay.google.com/gp/v/save/token"))
				})

				It("should clear the pending pass", func() {
					Expect(app.Pass()).To(BeNil())
				})
			})

			When("pass creation fails", func() {
				BeforeEach(func() {
					backend.passErr = errors.New("issuer unavailable")
				})

				It("should surface the failure to the user", func() {
					Expect(err).To(HaveOccurred())
					Expect(notifier.messages).To(HaveLen(1))
					Expect(notifier.messages[0]).To(ContainSubstring("issuer unavailable"))
				})

				It("should keep the pass for retry", func() {
					Expect(app.Pass()).NotTo(BeNil())
				})

				It("should not navigate anywhere", func() {
					Expect(navigator.urls).To(BeEmpty())
				})
			})
		})
	})
})
