package openai

import (
	"encoding/json"
	"fmt"

	"github.com/jinford/claim-rag/internal/core/claim"
)

// embeddingShape は埋め込みAPI応答として受け付ける形の1つ
type embeddingShape interface {
	vector() ([]float64, bool)
}

// openAIShape は {"data":[{"embedding":[...]}]}
type openAIShape struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

func (s *openAIShape) vector() ([]float64, bool) {
	if len(s.Data) == 0 || len(s.Data[0].Embedding) == 0 {
		return nil, false
	}
	return s.Data[0].Embedding, true
}

// singleShape は {"embedding":[...]}（Ollama の /api/embeddings など）
type singleShape struct {
	Embedding []float64 `json:"embedding"`
}

func (s *singleShape) vector() ([]float64, bool) {
	return s.Embedding, len(s.Embedding) > 0
}

// batchShape は {"embeddings":[[...], ...]}。先頭のベクトルを使う
type batchShape struct {
	Embeddings [][]float64 `json:"embeddings"`
}

func (s *batchShape) vector() ([]float64, bool) {
	if len(s.Embeddings) == 0 || len(s.Embeddings[0]) == 0 {
		return nil, false
	}
	return s.Embeddings[0], true
}

// embeddingShapes は判定を試す順序
var embeddingShapes = []func() embeddingShape{
	func() embeddingShape { return &openAIShape{} },
	func() embeddingShape { return &singleShape{} },
	func() embeddingShape { return &batchShape{} },
}

// decodeEmbedding は既知の形を順に試してベクトルを取り出す
func decodeEmbedding(raw []byte) ([]float32, error) {
	for _, newShape := range embeddingShapes {
		shape := newShape()
		if err := json.Unmarshal(raw, shape); err != nil {
			continue
		}
		if values, ok := shape.vector(); ok {
			vector := make([]float32, len(values))
			for i, v := range values {
				vector[i] = float32(v)
			}
			return vector, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", claim.ErrUnexpectedEmbeddingFormat, excerpt(raw))
}

func excerpt(raw []byte) string {
	const limit = 100
	if len(raw) <= limit {
		return string(raw)
	}
	return string(raw[:limit])
}
