//go:build !onnx

package main

import (
	"errors"

	"github.com/antigravity/decision-support/config"
	"github.com/antigravity/decision-support/memory"
)

func buildONNXEmbedder(cfg *config.AppConfig) (memory.Embedder, error) {
	return nil, errors.New("onnx embedder requires building with -tags onnx")
}
