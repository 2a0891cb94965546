package llm_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/neveleren/thewire/pkg/llm"
)

var _ = Describe("Options", func() {
	It("overrides only the token cap, leaving client defaults alone", func() {
		opts := llm.Options{
			Temperature: 0.7,
			MaxTokens:   500,
			Model:       "gpt-4o-mini",
		}

		llm.WithMaxTokens(150)(&opts)

		Expect(opts.MaxTokens).To(Equal(150))
		Expect(opts.Temperature).To(Equal(0.7))
		Expect(opts.Model).To(Equal("gpt-4o-mini"))
	})
})
