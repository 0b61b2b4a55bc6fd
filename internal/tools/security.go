package tools

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"strings"
)

const (
	lowerChars  = "abcdefghijklmnopqrstuvwxyz"
	upperChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digitChars  = "0123456789"
	symbolChars = "!@#$%^&*"

	minPasswordLength = 4
)

var hashers = map[string]func() hash.Hash{
	"md5":    md5.New,
	"sha1":   sha1.New,
	"sha256": sha256.New,
	"sha512": sha512.New,
}

type hashArgs struct {
	Text      string `mapstructure:"text"`
	Algorithm string `mapstructure:"algorithm"`
}

type passwordArgs struct {
	Length         int  `mapstructure:"length"`
	IncludeSymbols bool `mapstructure:"include_symbols"`
}

func (r *Registry) registerSecurity() error {
	const category = "security"
	if err := r.Register(Spec{
		Name: "hash_text", Category: category, Description: "Hex digest of text.",
		Params: []Param{
			{Name: "text", Type: TypeString, Required: true},
			{Name: "algorithm", Type: TypeString, Default: "sha256", Description: "md5, sha1, sha256 or sha512"},
		},
	}, typed(func(_ context.Context, in hashArgs) (map[string]any, error) {
		algo := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(in.Algorithm), "-", ""))
		newHash, ok := hashers[algo]
		if !ok {
			algo, newHash = "sha256", sha256.New
		}
		h := newHash()
		h.Write([]byte(in.Text))
		return map[string]any{
			"text":      in.Text,
			"algorithm": algo,
			"hash":      hex.EncodeToString(h.Sum(nil)),
		}, nil
	})); err != nil {
		return err
	}
	return r.Register(Spec{
		Name: "generate_password", Category: category, Description: "Random password with every character class.",
		Params: []Param{
			{Name: "length", Type: TypeInteger, Default: 12},
			{Name: "include_symbols", Type: TypeBoolean, Default: true},
		},
	}, typed(func(_ context.Context, in passwordArgs) (map[string]any, error) {
		length := max(in.Length, minPasswordLength)
		password := r.password(length, in.IncludeSymbols)
		strength := "medium"
		if length >= 12 {
			strength = "strong"
		}
		return map[string]any{
			"password":        password,
			"length":          length,
			"include_symbols": in.IncludeSymbols,
			"strength":        strength,
		}, nil
	}))
}

// password draws one character from each class, fills the rest from the union and
// shuffles, so every class is represented.
func (r *Registry) password(length int, symbols bool) string {
	classes := []string{lowerChars, upperChars, digitChars}
	if symbols {
		classes = append(classes, symbolChars)
	}
	all := strings.Join(classes, "")
	out := make([]byte, 0, length)
	for _, class := range classes {
		out = append(out, class[r.rand.IntN(len(class))])
	}
	for len(out) < length {
		out = append(out, all[r.rand.IntN(len(all))])
	}
	r.rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return string(out[:length])
}
