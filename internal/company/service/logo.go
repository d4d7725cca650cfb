package service

import (
	"bytes"
	"io"

	"github.com/disintegration/imaging"
	"github.com/smallbiznis/invoicer/internal/company/domain"
)

const (
	maxLogoBytes = 2 << 20
	maxLogoSide  = 512
)

// normalizeLogo decodes png, jpeg or gif input and re-encodes it as a PNG no
// larger than maxLogoSide on either side.
func normalizeLogo(r io.Reader) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(r, maxLogoBytes+1))
	if err != nil {
		return nil, err
	}
	if len(raw) > maxLogoBytes {
		return nil, domain.ErrLogoTooLarge
	}

	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, domain.ErrInvalidLogo
	}

	b := img.Bounds()
	if b.Dx() > maxLogoSide || b.Dy() > maxLogoSide {
		img = imaging.Fit(img, maxLogoSide, maxLogoSide, imaging.Lanczos)
	}

	var out bytes.Buffer
	if err := imaging.Encode(&out, img, imaging.PNG); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
