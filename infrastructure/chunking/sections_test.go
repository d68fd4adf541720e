package chunking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSections_NoHeadings(t *testing.T) {
	sections := SplitSections("Just some prose.\nMore prose.")
	require.Len(t, sections, 1)
	assert.Equal(t, HeaderSection, sections[0].Name())
	assert.Equal(t, "Just some prose.\nMore prose.", sections[0].Text())
}

func TestSplitSections_Empty(t *testing.T) {
	assert.Empty(t, SplitSections(""))
	assert.Empty(t, SplitSections("   \n  "))
}

func TestSplitSections_SplitsOnItemHeadings(t *testing.T) {
	text := "UNITED STATES SECURITIES AND EXCHANGE COMMISSION\n" +
		"Form 10-K\n" +
		"ITEM 1. BUSINESS\n" +
		"We design and sell products.\n" +
		"Item 7. Management's Discussion and Analysis\n" +
		"Net revenue grew to $2.1 billion.\n" +
		"ITEM 8. FINANCIAL STATEMENTS\n" +
		"See accompanying notes."

	sections := SplitSections(text)
	require.Len(t, sections, 4)

	assert.Equal(t, HeaderSection, sections[0].Name())
	assert.Contains(t, sections[0].Text(), "Form 10-K")

	assert.Equal(t, "ITEM 1. BUSINESS", sections[1].Name())
	assert.Contains(t, sections[1].Text(), "We design and sell products.")

	assert.Contains(t, sections[2].Name(), "ITEM 7.")
	assert.Contains(t, sections[2].Name(), "DISCUSSION")
	assert.Contains(t, sections[2].Text(), "$2.1 billion")

	assert.Equal(t, "ITEM 8. FINANCIAL STATEMENTS", sections[3].Name())
}

func TestSplitSections_Item1ADistinctFromItem1(t *testing.T) {
	text := "ITEM 1. BUSINESS\nproducts\nITEM 1A. RISK FACTORS\ncompetition"

	sections := SplitSections(text)
	require.Len(t, sections, 2)
	assert.Equal(t, "ITEM 1. BUSINESS", sections[0].Name())
	assert.Equal(t, "ITEM 1A. RISK FACTORS", sections[1].Name())
}

func TestSplitSections_CaseInsensitive(t *testing.T) {
	sections := SplitSections("item 1a. risk factors\nsupply chain risk")
	require.Len(t, sections, 1)
	assert.Equal(t, "ITEM 1A. RISK FACTORS", sections[0].Name())
}

func TestSplitSections_HeadingNormalizesWhitespace(t *testing.T) {
	sections := SplitSections("ITEM   8.   FINANCIAL   STATEMENTS\nbalance sheet")
	require.Len(t, sections, 1)
	assert.Equal(t, "ITEM 8. FINANCIAL STATEMENTS", sections[0].Name())
}
