package store

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LocalStorage", func() {
	var (
		tmpDir  string
		storage *LocalStorage
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		var err error
		storage, err = NewLocalStorage(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Save", func() {
		It("should save and return the filename", func() {
			path, err := storage.Save("receipt.png", []byte("image data"))
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(Equal("receipt.png"))
		})
	})

	Describe("Get", func() {
		When("the file exists", func() {
			BeforeEach(func() {
				_, err := storage.Save("receipt.png", []byte("image data"))
				Expect(err).NotTo(HaveOccurred())
			})

			It("should return the file contents", func() {
				data, err := storage.Get("receipt.png")
				Expect(err).NotTo(HaveOccurred())
				Expect(string(data)).To(Equal("image data"))
			})
		})

		When("the file does not exist", func() {
			It("returns an error", func() {
				_, err := storage.Get("missing.png")
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("Delete", func() {
		When("the file exists", func() {
			BeforeEach(func() {
				_, err := storage.Save("receipt.png", []byte("image data"))
				Expect(err).NotTo(HaveOccurred())
			})

			It("should remove the file", func() {
				Expect(storage.Delete("receipt.png")).To(Succeed())
				_, err := storage.Get("receipt.png")
				Expect(err).To(HaveOccurred())
			})
		})

		When("the file does not exist", func() {
			It("returns an error", func() {
				Expect(storage.Delete("missing.png")).To(HaveOccurred())
			})
		})
	})
})
