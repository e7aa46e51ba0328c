package idnax

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestToASCII(t *testing.T) {
	testcases := []struct {
		input     string
		expectErr string
		expect    string
	}{{
		input:  "ουτοπία.δπθ.gr",
		expect: "xn--kxae4bafwg.xn--pxaix.gr",
	}, {
		input:  "bücher.example",
		expect: "xn--bcher-kva.example",
	}, {
		input:  "EXAMPLE.com",
		expect: "example.com",
	}, {
		input:  "dns.google",
		expect: "dns.google",
	}, {
		input:     "http://xn--0000h/",
		expectErr: "idna: disallowed rune U+003A",
	}}

	for _, tc := range testcases {
		t.Run(tc.input, func(t *testing.T) {
			output, err := ToASCII(tc.input)
			if tc.expectErr != "" {
				if err == nil || err.Error() != tc.expectErr {
					t.Fatal("expected", tc.expectErr, "got", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.expect, output); diff != "" {
				t.Fatal(diff)
			}
		})
	}
}
