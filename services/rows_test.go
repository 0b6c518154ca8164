package services

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeHeader(t *testing.T) {
	tests := map[string]string{
		"\uFEFFProperty URL": "property_url",
		"  Image URL ":       "image_url",
		"P24_Size":           "p24_size",
		"Bedroom":            "bedroom",
		`"Price"`:            "price",
		"Listing   Title":    "listing_title",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeHeader(in), "NormalizeHeader(%q)", in)
	}
}

func TestRowReaderStreamsRecords(t *testing.T) {
	input := "\uFEFFProperty URL;Price;Title\n" +
		"https://a;R 100; Flat \n" +
		"https://b;R 200\n" +
		"https://c;R 300;House;extra\n"

	rr, err := NewRowReader(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"property_url", "price", "title"}, rr.Header())

	rec, err := rr.Next()
	require.NoError(t, err)
	assert.Equal(t, "https://a", rec["property_url"])
	assert.Equal(t, "Flat", rec["title"])
	assert.Equal(t, 2, rr.Line())

	rec, err = rr.Next()
	require.NoError(t, err)
	_, hasTitle := rec["title"]
	assert.False(t, hasTitle, "short row leaves missing column absent")

	rec, err = rr.Next()
	require.NoError(t, err)
	assert.Equal(t, "House", rec["title"])
	assert.Len(t, rec, 3)

	_, err = rr.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestRowReaderMissingHeader(t *testing.T) {
	_, err := NewRowReader(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestRowReaderRejectsInvalidUTF8AndContinues(t *testing.T) {
	input := "property_url;title\n" +
		"https://a;caf\xe9\n" +
		"https://b;ok\n"

	rr, err := NewRowReader(strings.NewReader(input))
	require.NoError(t, err)

	_, err = rr.Next()
	var rowErr *RowError
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, 2, rowErr.Line)
	assert.Contains(t, rowErr.Raw, "https://a")

	rec, err := rr.Next()
	require.NoError(t, err)
	assert.Equal(t, "https://b", rec["property_url"])
}

func TestRowReaderFirstDuplicateHeaderWins(t *testing.T) {
	rr, err := NewRowReader(strings.NewReader("price;Price\nR1;R2\n"))
	require.NoError(t, err)

	rec, err := rr.Next()
	require.NoError(t, err)
	assert.Equal(t, "R1", rec["price"])
}

func TestRowReaderStrayQuoteFailsOnlyItsRow(t *testing.T) {
	input := "property_url;price;description\n" +
		"https://a;R1;\"Sea view\" flat with pool\n" +
		"https://b;R2;plain\n" +
		"https://c;R3;plain\n"

	rr, err := NewRowReader(strings.NewReader(input))
	require.NoError(t, err)

	_, err = rr.Next()
	var rowErr *RowError
	require.True(t, errors.As(err, &rowErr), "got %v", err)
	assert.Equal(t, 2, rowErr.Line)

	rec, err := rr.Next()
	require.NoError(t, err)
	assert.Equal(t, "https://b", rec["property_url"])
	assert.Equal(t, "plain", rec["description"])
	assert.Equal(t, 3, rr.Line())

	rec, err = rr.Next()
	require.NoError(t, err)
	assert.Equal(t, "https://c", rec["property_url"])

	_, err = rr.Next()
	assert.ErrorIs(t, err, io.EOF)
}
