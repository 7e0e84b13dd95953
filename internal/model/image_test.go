package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestImageTooLargeMessage(t *testing.T) {
	tests := []struct {
		maxBytes int64
		want     string
	}{
		{DefaultMaxImageBytes, "Imagem tem que ser menor que 3MB"},
		{10 * 1024 * 1024, "Imagem tem que ser menor que 10MB"},
		{1536 * 1024, "Imagem tem que ser menor que 1.5MB"},
		{512 * 1024, "Imagem tem que ser menor que 512KB"},
		{1000, "Imagem tem que ser menor que 1000 bytes"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ImageTooLargeMessage(tt.maxBytes))
	}
}
