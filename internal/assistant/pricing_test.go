package assistant

import (
	"context"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("IPLocator", func() {
	var (
		server  *ghttp.Server
		locator *IPLocator
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		locator = NewIPLocatorWithURL(server.URL())
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("Locate", func() {
		When("the API responds", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.CombineHandlers(
					ghttp.VerifyRequest("GET", "/json/"),
					ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]string{
						"city":         "Portland",
						"region":       "Oregon",
						"country_name": "United States",
					}),
				))
			})

			It("should return the location", func() {
				location, err := locator.Locate(context.Background())
				Expect(err).NotTo(HaveOccurred())
				Expect(location.City).To(Equal("Portland"))
				Expect(location.Region).To(Equal("Oregon"))
				Expect(location.Country).To(Equal("United States"))
			})
		})

		When("the API returns an error status", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.RespondWith(http.StatusTooManyRequests, "slow down"))
			})

			It("returns an error", func() {
				_, err := locator.Locate(context.Background())
				Expect(err).To(HaveOccurred())
			})
		})

		When("the response body is not JSON", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.RespondWith(http.StatusOK, "not json"))
			})

			It("returns an error", func() {
				_, err := locator.Locate(context.Background())
				Expect(err).To(HaveOccurred())
			})
		})
	})
})

var _ = Describe("NewCustomSearcher", func() {
	When("credentials are missing", func() {
		It("returns an error", func() {
			_, err := NewCustomSearcher(context.Background(), "", "")
			Expect(err).To(HaveOccurred())
		})
	})
})
