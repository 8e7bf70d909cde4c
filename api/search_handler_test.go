package api

import (
	"encoding/json"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/civitaslabs/ordina/pkg/llm"
	"github.com/civitaslabs/ordina/pkg/rag"
)

var _ = Describe("Search handler", func() {
	var server *Server

	get := func(url string) *http.Response {
		req, err := http.NewRequest("GET", url, nil)
		Expect(err).NotTo(HaveOccurred())

		resp, err := server.app.Test(req)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	decodeOutput := func(resp *http.Response) rag.SearchOutput {
		defer resp.Body.Close()
		var out rag.SearchOutput
		Expect(json.NewDecoder(resp.Body).Decode(&out)).To(Succeed())
		return out
	}

	decodeError := func(resp *http.Response) llm.ErrorResponse {
		defer resp.Body.Close()
		var out llm.ErrorResponse
		Expect(json.NewDecoder(resp.Body).Decode(&out)).To(Succeed())
		return out
	}

	BeforeEach(func() {
		server = newTestServer(nil, true)
	})

	It("returns fused results for a query", func() {
		resp := get("/v1/search?query=waste+collection")
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		out := decodeOutput(resp)
		Expect(out.Query).To(Equal("waste collection"))
		Expect(out.Count).To(BeNumerically(">", 0))
		Expect(out.Results[0].DocID).To(Equal("ord-2007-wm-01"))
		Expect(out.Results[0].Text).NotTo(BeEmpty())
	})

	It("marks sparse-only serving as degraded", func() {
		resp := get("/v1/search?query=waste")
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(decodeOutput(resp).Degraded).To(BeTrue())
	})

	It("returns an empty result set for unmatched queries", func() {
		resp := get("/v1/search?query=spaceport")
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		out := decodeOutput(resp)
		Expect(out.Count).To(BeZero())
		Expect(out.Results).To(BeEmpty())
	})

	It("requires a query parameter", func() {
		resp := get("/v1/search")
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		Expect(decodeError(resp).Error).To(ContainSubstring("query"))
	})

	It("rejects a non-numeric top_k", func() {
		resp := get("/v1/search?query=waste&top_k=lots")
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
	})

	It("rejects a non-positive top_k", func() {
		resp := get("/v1/search?query=waste&top_k=0")
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
	})

	It("honors the top_k parameter", func() {
		resp := get("/v1/search?query=waste&top_k=1")
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(decodeOutput(resp).Count).To(BeNumerically("<=", 1))
	})

	It("rejects a lone weight parameter", func() {
		resp := get("/v1/search?query=waste&dense_weight=0.5")
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		Expect(decodeError(resp).Error).To(ContainSubstring("together"))
	})

	It("rejects weights that do not sum to 1.0", func() {
		resp := get("/v1/search?query=waste&dense_weight=0.9&sparse_weight=0.9")
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		Expect(decodeError(resp).Error).To(ContainSubstring("sum to 1.0"))
	})

	It("rejects non-numeric weights", func() {
		resp := get("/v1/search?query=waste&dense_weight=heavy&sparse_weight=0.3")
		Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
	})

	It("accepts a valid weight override", func() {
		resp := get("/v1/search?query=waste&dense_weight=0&sparse_weight=1")
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
	})

	It("returns 503 when the sparse index is not built", func() {
		server = newTestServer(nil, false)

		resp := get("/v1/search?query=waste")
		Expect(resp.StatusCode).To(Equal(http.StatusServiceUnavailable))
		Expect(decodeError(resp).Error).To(Equal("sparse index not built"))
	})
})
