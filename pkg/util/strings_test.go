package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseIntDefault(t *testing.T) {
	assert.Equal(t, 7, ParseIntDefault("", 7))
	assert.Equal(t, 7, ParseIntDefault("abc", 7))
	assert.Equal(t, 12, ParseIntDefault("12", 7))
}

func TestNormalizeSymbols(t *testing.T) {
	assert.Equal(t, []string{"AAPL", "MSFT"}, NormalizeSymbols([]string{" aapl", "MSFT", "", "Aapl"}))
	assert.Nil(t, NormalizeSymbols(nil))
}

func TestSplitCSV(t *testing.T) {
	assert.Equal(t, []string{"Technology", "Energy"}, SplitCSV("Technology, Energy,,"))
	assert.Nil(t, SplitCSV("  "))
}
