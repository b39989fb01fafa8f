package assistant

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("extractJSONObject", func() {
	When("the reply is bare JSON", func() {
		It("should return it unchanged", func() {
			out, err := extractJSONObject(`{"items":[]}`)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal(`{"items":[]}`))
		})
	})

	When("the reply is wrapped in a markdown fence", func() {
		It("should strip the fence", func() {
			out, err := extractJSONObject("```json\n{\"items\":[]}\n```")
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal(`{"items":[]}`))
		})
	})

	When("the reply has surrounding prose", func() {
		It("should extract just the object", func() {
			out, err := extractJSONObject(`Here is the data: {"items":[]} hope that helps!`)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal(`{"items":[]}`))
		})
	})

	When("the reply has no JSON object", func() {
		It("returns an error", func() {
			_, err := extractJSONObject("I could not read the image")
			Expect(err).To(HaveOccurred())
		})
	})

	When("the braces are unbalanced", func() {
		It("returns an error", func() {
			_, err := extractJSONObject("} backwards {")
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("parseReceiptData", func() {
	var today time.Time

	BeforeEach(func() {
		today = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	})

	When("the data is complete", func() {
		It("should parse items, date and place", func() {
			data, err := parseReceiptData(`{"items":[{"name":"Eggs","price":4.99,"quantity":2}],"purchase_date":"2024-01-10","purchase_place":"Market"}`, today)
			Expect(err).NotTo(HaveOccurred())
			Expect(data.Items).To(HaveLen(1))
			Expect(data.PurchaseDate).To(Equal("2024-01-10"))
			Expect(data.PurchasePlace).To(Equal("Market"))
		})
	})

	When("the date uses slashes", func() {
		It("should normalize it to ISO form", func() {
			data, err := parseReceiptData(`{"items":[],"purchase_date":"2024/01/10"}`, today)
			Expect(err).NotTo(HaveOccurred())
			Expect(data.PurchaseDate).To(Equal("2024-01-10"))
		})
	})

	When("the date uses the US order", func() {
		It("should normalize it to ISO form", func() {
			data, err := parseReceiptData(`{"items":[],"purchase_date":"01/10/2024"}`, today)
			Expect(err).NotTo(HaveOccurred())
			Expect(data.PurchaseDate).To(Equal("2024-01-10"))
		})
	})

	When("the date is missing", func() {
		It("should default to today", func() {
			data, err := parseReceiptData(`{"items":[]}`, today)
			Expect(err).NotTo(HaveOccurred())
			Expect(data.PurchaseDate).To(Equal("2024-01-15"))
		})
	})

	When("the date is unparseable", func() {
		It("should default to today", func() {
			data, err := parseReceiptData(`{"items":[],"purchase_date":"sometime in January"}`, today)
			Expect(err).NotTo(HaveOccurred())
			Expect(data.PurchaseDate).To(Equal("2024-01-15"))
		})
	})

	When("items are malformed", func() {
		It("should default empty names and zero quantities", func() {
			data, err := parseReceiptData(`{"items":[{"name":"  "},{"name":"Milk","quantity":-1}]}`, today)
			Expect(err).NotTo(HaveOccurred())
			Expect(data.Items[0].Name).To(Equal("Unknown Item"))
			Expect(data.Items[0].Quantity).To(Equal(1))
			Expect(data.Items[1].Quantity).To(Equal(1))
		})
	})

	When("the JSON is invalid", func() {
		It("returns an error", func() {
			_, err := parseReceiptData(`{"items": not json}`, today)
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("parsePassData", func() {
	When("the list is valid", func() {
		It("should parse the items with defaults applied", func() {
			pass, err := parsePassData("```json\n{\"items\":[{\"name\":\"Bread\"}]}\n```")
			Expect(err).NotTo(HaveOccurred())
			Expect(pass.Items).To(HaveLen(1))
			Expect(pass.Items[0].Name).To(Equal("Bread"))
			Expect(pass.Items[0].Quantity).To(Equal(1))
		})
	})

	When("the reply has no JSON", func() {
		It("returns an error", func() {
			_, err := parsePassData("sorry, no list here")
			Expect(err).To(HaveOccurred())
		})
	})
})
