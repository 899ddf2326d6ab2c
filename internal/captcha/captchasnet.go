package captcha

import (
	"crypto/md5"
	"net/url"
	"strconv"
	"strings"

	"github.com/sp-hack/server/internal/auth"
)

const (
	DefaultAlphabet = "abcdefghijklmnopqrstuvwxyz"
	DefaultLetters  = 6
	DefaultWidth    = 240
	DefaultHeight   = 80

	randomAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	randomLength   = 40

	imageBaseURL = "https://image.captchas.net/"
	audioBaseURL = "https://audio.captchas.net/"
)

// CaptchasNet renders challenges through the captchas.net service. The
// service derives the image text from the client secret and the random
// string, so the expected answer can be recomputed locally.
type CaptchasNet struct {
	Client   string
	Secret   string
	Alphabet string
	Letters  int
	Width    int
	Height   int
}

func NewCaptchasNet(client, secret string) *CaptchasNet {
	return &CaptchasNet{
		Client:   client,
		Secret:   secret,
		Alphabet: DefaultAlphabet,
		Letters:  DefaultLetters,
		Width:    DefaultWidth,
		Height:   DefaultHeight,
	}
}

func (c *CaptchasNet) NewChallenge() (Challenge, error) {
	random, err := auth.RandomString(randomLength, randomAlphabet)
	if err != nil {
		return Challenge{}, err
	}
	return Challenge{
		RandomString: random,
		ImageURL:     c.ImageURL(random),
		AudioURL:     c.AudioURL(random),
	}, nil
}

func (c *CaptchasNet) customAlphabet() bool {
	return c.Alphabet != DefaultAlphabet || c.Letters != DefaultLetters
}

// Expected returns the text the service draws for random.
func (c *CaptchasNet) Expected(random string) string {
	if c.customAlphabet() {
		random += ":" + c.Alphabet + ":" + strconv.Itoa(c.Letters)
	}
	sum := md5.Sum([]byte(c.Secret + random))

	letters := c.Letters
	if letters > len(sum) {
		letters = len(sum)
	}
	out := make([]byte, letters)
	for i := range out {
		out[i] = c.Alphabet[int(sum[i])%len(c.Alphabet)]
	}
	return string(out)
}

func (c *CaptchasNet) Matches(random, answer string) bool {
	return strings.ToLower(strings.TrimSpace(answer)) == c.Expected(random)
}

func (c *CaptchasNet) ImageURL(random string) string {
	var b strings.Builder
	b.WriteString(imageBaseURL)
	c.writeQuery(&b, random)
	if c.Width != DefaultWidth {
		b.WriteString("&width=" + strconv.Itoa(c.Width))
	}
	if c.Height != DefaultHeight {
		b.WriteString("&height=" + strconv.Itoa(c.Height))
	}
	return b.String()
}

func (c *CaptchasNet) AudioURL(random string) string {
	var b strings.Builder
	b.WriteString(audioBaseURL)
	c.writeQuery(&b, random)
	return b.String()
}

func (c *CaptchasNet) writeQuery(b *strings.Builder, random string) {
	b.WriteString("?client=" + url.QueryEscape(c.Client))
	b.WriteString("&random=" + url.QueryEscape(random))
	if c.customAlphabet() {
		b.WriteString("&alphabet=" + url.QueryEscape(c.Alphabet))
		b.WriteString("&letters=" + strconv.Itoa(c.Letters))
	}
}
