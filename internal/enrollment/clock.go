package enrollment

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"time"
)

// Clock supplies the current instant. Workflows read it once per operation.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock in UTC.
var SystemClock Clock = ClockFunc(func() time.Time { return time.Now().UTC() })

// CodeSource draws attendance codes.
type CodeSource interface {
	NextCode() (string, error)
}

const (
	minCode   = 1000
	codeRange = 9000
)

type cryptoCodeSource struct{}

// NewCodeSource returns a source of uniformly distributed codes in 1000–9999.
func NewCodeSource() CodeSource {
	return cryptoCodeSource{}
}

func (cryptoCodeSource) NextCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeRange))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+minCode, 10), nil
}
