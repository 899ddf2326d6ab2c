package captcha

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptchasNet_Expected(t *testing.T) {
	c := NewCaptchasNet("demo", "secret")
	assert.Equal(t, "rkomlf", c.Expected("RandomString"))

	c = NewCaptchasNet("demo", "demo-secret")
	assert.Equal(t, "hfylpl", c.Expected("0123456789abcdefghij0123456789abcdefghij"))
}

func TestCaptchasNet_ExpectedCustomAlphabet(t *testing.T) {
	c := NewCaptchasNet("demo", "secret")
	c.Alphabet = "0123456789"
	c.Letters = 4

	assert.Equal(t, "8817", c.Expected("RandomString"))
}

func TestCaptchasNet_MatchesIgnoresCaseAndSpaces(t *testing.T) {
	c := NewCaptchasNet("demo", "secret")

	assert.True(t, c.Matches("RandomString", " RKOMLF "))
	assert.False(t, c.Matches("RandomString", "rkomlx"))
	assert.False(t, c.Matches("RandomString", ""))
}

func TestCaptchasNet_URLs(t *testing.T) {
	c := NewCaptchasNet("demo", "secret")

	assert.Equal(t, "https://image.captchas.net/?client=demo&random=abc", c.ImageURL("abc"))
	assert.Equal(t, "https://audio.captchas.net/?client=demo&random=abc", c.AudioURL("abc"))

	c.Alphabet = "0123456789"
	c.Letters = 4
	c.Width = 300
	assert.Equal(t,
		"https://image.captchas.net/?client=demo&random=abc&alphabet=0123456789&letters=4&width=300",
		c.ImageURL("abc"))
	assert.Equal(t,
		"https://audio.captchas.net/?client=demo&random=abc&alphabet=0123456789&letters=4",
		c.AudioURL("abc"))
}

func TestCaptchasNet_NewChallenge(t *testing.T) {
	c := NewCaptchasNet("demo", "secret")

	first, err := c.NewChallenge()
	require.NoError(t, err)
	second, err := c.NewChallenge()
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^[a-z0-9]{40}$`), first.RandomString)
	assert.NotEqual(t, first.RandomString, second.RandomString)
	assert.Equal(t, c.ImageURL(first.RandomString), first.ImageURL)
	assert.Equal(t, c.AudioURL(first.RandomString), first.AudioURL)
}
