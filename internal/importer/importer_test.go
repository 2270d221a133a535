package importer_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/registrar/internal/apperr"
	"github.com/MrJamesThe3rd/registrar/internal/importer"
)

func TestParse(t *testing.T) {
	type testCase struct {
		name    string
		input   []byte
		want    []importer.Row
		wantErr bool
	}

	tests := []testCase{
		{
			name:  "CommaSeparated",
			input: []byte("name,price\nTranscript of Records,150\nDiploma,\"1,500\"\n"),
			want: []importer.Row{
				{Line: 2, Name: "Transcript of Records", Price: 150},
				{Line: 3, Name: "Diploma", Price: 1500},
			},
		},
		{
			name:  "SemicolonWithPreambleAndEuropeanAmounts",
			input: []byte("Registrar price list;2026\n\nCredential;Fee;Notes\nDiploma;1.500,00;framed\nCertificação;80;\n"),
			want: []importer.Row{
				{Line: 4, Name: "Diploma", Price: 1500},
				{Line: 5, Name: "Certificação", Price: 80},
			},
		},
		{
			name:  "SkipsBlankRows",
			input: []byte("Name,Amount\nTranscript,150\n,\nDiploma,500\n"),
			want: []importer.Row{
				{Line: 2, Name: "Transcript", Price: 150},
				{Line: 4, Name: "Diploma", Price: 500},
			},
		},
		{
			name:  "UTF8BOM",
			input: append([]byte{0xEF, 0xBB, 0xBF}, []byte("name;price\nTranscript;150\n")...),
			want:  []importer.Row{{Line: 2, Name: "Transcript", Price: 150}},
		},
		{
			name: "Windows1252",
			input: []byte{
				'n', 'a', 'm', 'e', ';', 'p', 'r', 'i', 'c', 'e', '\n',
				'C', 'e', 'r', 't', 'i', 'f', 'i', 'c', 'a', 0xE7, 0xE3, 'o', ';', '8', '0', '\n',
			},
			want: []importer.Row{{Line: 2, Name: "Certificação", Price: 80}},
		},
		{
			name:    "FractionalPrice",
			input:   []byte("name,price\nTranscript,150.50\n"),
			wantErr: true,
		},
		{
			name:    "NegativePrice",
			input:   []byte("name,price\nTranscript,-1\n"),
			wantErr: true,
		},
		{
			name:    "MissingName",
			input:   []byte("name,price\n,150\n"),
			wantErr: true,
		},
		{
			name:    "NoHeader",
			input:   []byte("Transcript,150\n"),
			wantErr: true,
		},
		{
			name:    "Empty",
			input:   nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := importer.Parse(bytes.NewReader(tt.input))
			if tt.wantErr {
				assert.ErrorIs(t, err, apperr.ErrInvalid)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_WholeDecimalAccepted(t *testing.T) {
	got, err := importer.Parse(strings.NewReader("price,name\n150.00,Transcript\n"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(150), got[0].Price)
}
