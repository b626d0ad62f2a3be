//go:build onnx

package main

import (
	"github.com/antigravity/decision-support/config"
	"github.com/antigravity/decision-support/memory"
	embonnx "github.com/antigravity/decision-support/memory/embedder/onnx"
)

func buildONNXEmbedder(cfg *config.AppConfig) (memory.Embedder, error) {
	return embonnx.New(embonnx.Config{
		ModelPath:     cfg.Embedder.ONNX.ModelPath,
		TokenizerPath: cfg.Embedder.ONNX.TokenizerPath,
		Dimensions:    cfg.Embedder.ONNX.Dimensions,
	})
}
