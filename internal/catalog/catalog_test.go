package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/registrar/internal/catalog"
)

func TestPackage_Price(t *testing.T) {
	type testCase struct {
		name     string
		contents []catalog.Content
		want     int64
	}

	tests := []testCase{
		{
			name:     "Empty",
			contents: nil,
			want:     0,
		},
		{
			name:     "GradPack",
			contents: []catalog.Content{{CredentialName: "Transcript", UnitPrice: 150, Quantity: 2}},
			want:     300,
		},
		{
			name: "Mixed",
			contents: []catalog.Content{
				{CredentialName: "Transcript", UnitPrice: 150, Quantity: 1},
				{CredentialName: "Diploma", UnitPrice: 500, Quantity: 2},
			},
			want: 1150,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &catalog.Package{Contents: tt.contents}
			assert.Equal(t, tt.want, p.Price())
		})
	}
}

func TestPackage_PriceFollowsCurrentCredentialPrice(t *testing.T) {
	p := &catalog.Package{Contents: []catalog.Content{{UnitPrice: 150, Quantity: 2}}}
	assert.Equal(t, int64(300), p.Price())

	p.Contents[0].UnitPrice = 200
	assert.Equal(t, int64(400), p.Price())
}
