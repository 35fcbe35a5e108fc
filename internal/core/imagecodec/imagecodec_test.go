package imagecodec

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestEncodeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "car.jpg")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o600))

	got, err := EncodeFile(path)
	require.NoError(t, err)
	assert.Equal(t, "YWJj", got)
}

func TestEncodeFile_Missing(t *testing.T) {
	_, err := EncodeFile(filepath.Join(t.TempDir(), "none.jpg"))
	assert.Error(t, err)
}

func TestStripDataURI(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "jpeg ヘッダを除去", input: "data:image/jpeg;base64,QUJD", want: "QUJD"},
		{name: "png ヘッダを除去", input: "data:image/png;base64,QUJD", want: "QUJD"},
		{name: "svg+xml ヘッダを除去", input: "data:image/svg+xml;base64,QUJD", want: "QUJD"},
		{name: "ヘッダなしはそのまま", input: "QUJD", want: "QUJD"},
		{name: "JSON 文字列リテラル", input: `"data:image/jpeg;base64,QUJD"`, want: "QUJD"},
		{name: "前後の空白", input: "  QUJD\n", want: "QUJD"},
		{name: "画像以外の data URI は残す", input: "data:text/plain;base64,QUJD", want: "data:text/plain;base64,QUJD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripDataURI(tt.input))
		})
	}
}

func TestDataURI(t *testing.T) {
	t.Run("PNG を判定する", func(t *testing.T) {
		b64 := Encode(pngHeader)
		assert.Equal(t, "data:image/png;base64,"+b64, DataURI(b64))
	})

	t.Run("画像でなければ jpeg とみなす", func(t *testing.T) {
		b64 := Encode([]byte("plain text body"))
		assert.Equal(t, "data:image/jpeg;base64,"+b64, DataURI(b64))
	})

	t.Run("base64 として不正でも受け付ける", func(t *testing.T) {
		assert.Equal(t, "data:image/jpeg;base64,%%%", DataURI("%%%"))
	})
}
