package casting

import (
	"context"
	crand "crypto/rand"
	"fmt"
	"io"
	"math/big"
	"math/rand/v2"
	"os"

	"github.com/danielpatrickdp/hexagram-oracle/internal/faults"
)

// #region wood

// PRNGStrategy (wood) draws coins from the runtime's general-purpose generator.
type PRNGStrategy struct {
	intN func(int) int
}

// NewPRNG returns the wood strategy.
func NewPRNG() *PRNGStrategy {
	return &PRNGStrategy{intN: rand.IntN}
}

func (s *PRNGStrategy) Method() Method { return MethodWood }

func (s *PRNGStrategy) CastLine(ctx context.Context) (Toss, error) {
	if err := ctx.Err(); err != nil {
		return Toss{}, err
	}
	return tossFromBits(s.intN(2), s.intN(2), s.intN(2)), nil
}

func (s *PRNGStrategy) RequiresExternalResource() bool { return false }

func (s *PRNGStrategy) Available(context.Context) (bool, string) { return true, "" }

// #endregion wood

// #region metal

// DefaultDevicePath is the OS entropy pool read by the metal strategy.
const DefaultDevicePath = "/dev/urandom"

// DeviceStrategy (metal) reads raw bytes from the OS entropy device and
// uses the low bit of each byte as a coin.
type DeviceStrategy struct {
	path string
}

// NewDevice returns the metal strategy reading from path (DefaultDevicePath if empty).
func NewDevice(path string) *DeviceStrategy {
	if path == "" {
		path = DefaultDevicePath
	}
	return &DeviceStrategy{path: path}
}

func (s *DeviceStrategy) Method() Method { return MethodMetal }

func (s *DeviceStrategy) CastLine(ctx context.Context) (Toss, error) {
	if err := ctx.Err(); err != nil {
		return Toss{}, err
	}
	var buf [3]byte
	if err := s.read(buf[:]); err != nil {
		return Toss{}, err
	}
	return tossFromBits(int(buf[0]), int(buf[1]), int(buf[2])), nil
}

func (s *DeviceStrategy) read(buf []byte) error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("%w: open entropy device %s: %v", faults.ErrUnavailable, s.path, err)
	}
	defer f.Close()
	if _, err := io.ReadFull(f, buf); err != nil {
		return fmt.Errorf("%w: read entropy device %s: %v", faults.ErrUnavailable, s.path, err)
	}
	return nil
}

func (s *DeviceStrategy) RequiresExternalResource() bool { return false }

func (s *DeviceStrategy) Available(context.Context) (bool, string) {
	var probe [1]byte
	if err := s.read(probe[:]); err != nil {
		return false, fmt.Sprintf("entropy device %s is not readable", s.path)
	}
	return true, ""
}

// #endregion metal

// #region fire

// CryptoStrategy (fire) draws coins from crypto/rand.
type CryptoStrategy struct {
	reader io.Reader
}

// NewCrypto returns the fire strategy.
func NewCrypto() *CryptoStrategy {
	return &CryptoStrategy{reader: crand.Reader}
}

func (s *CryptoStrategy) Method() Method { return MethodFire }

func (s *CryptoStrategy) CastLine(ctx context.Context) (Toss, error) {
	if err := ctx.Err(); err != nil {
		return Toss{}, err
	}
	var bits [3]int
	two := big.NewInt(2)
	for i := range bits {
		n, err := crand.Int(s.reader, two)
		if err != nil {
			return Toss{}, fmt.Errorf("%w: crypto rand: %v", faults.ErrUnavailable, err)
		}
		bits[i] = int(n.Int64())
	}
	return tossFromBits(bits[0], bits[1], bits[2]), nil
}

func (s *CryptoStrategy) RequiresExternalResource() bool { return false }

func (s *CryptoStrategy) Available(context.Context) (bool, string) { return true, "" }

// #endregion fire
