package solana

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
)

// MintSize is the packed length of an SPL mint.
const MintSize = 82

// Token represents a Solana token with mint information and owner
type Token struct {
	token.Mint
	// Owner program of the mint account
	Owner solana.PublicKey
}

// TokenLayout provides methods for decoding token data
type TokenLayout struct {
}

func (l *TokenLayout) Decode(data []byte) (*Token, error) {
	if len(data) != MintSize {
		return nil, fmt.Errorf("mint: invalid data length %d", len(data))
	}
	mint := token.Mint{}
	if err := bin.NewBinDecoder(data).Decode(&mint); err != nil {
		return nil, err
	}
	return &Token{Mint: mint}, nil
}

func (l *TokenLayout) Encode(mint *token.Mint) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := bin.NewBinEncoder(buf).Encode(mint); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodeMint(data []byte) (*token.Mint, error) {
	t, err := new(TokenLayout).Decode(data)
	if err != nil {
		return nil, err
	}
	return &t.Mint, nil
}

func EncodeMint(mint *token.Mint) ([]byte, error) {
	return new(TokenLayout).Encode(mint)
}
