package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/claim-rag/internal/core/claim"
)

func TestDecodeEmbedding(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []float32
	}{
		{
			name: "OpenAI 形式",
			raw:  `{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.1,0.2,0.3]}],"model":"text-embedding-ada-002"}`,
			want: []float32{0.1, 0.2, 0.3},
		},
		{
			name: "単一ベクトル形式",
			raw:  `{"embedding":[1,2]}`,
			want: []float32{1, 2},
		},
		{
			name: "ベクトル列形式は先頭を使う",
			raw:  `{"model":"nomic-embed-text","embeddings":[[0.5,0.25],[9,9]]}`,
			want: []float32{0.5, 0.25},
		},
		{
			name: "data が空なら次の形を試す",
			raw:  `{"data":[],"embedding":[4]}`,
			want: []float32{4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeEmbedding([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeEmbedding_Unexpected(t *testing.T) {
	inputs := []string{
		`{"vector":[1,2,3]}`,
		`{"embedding":[]}`,
		`{"embeddings":[]}`,
		`[0.1, 0.2]`,
		`not json`,
	}

	for _, raw := range inputs {
		t.Run(raw, func(t *testing.T) {
			_, err := decodeEmbedding([]byte(raw))
			assert.ErrorIs(t, err, claim.ErrUnexpectedEmbeddingFormat)
		})
	}
}
