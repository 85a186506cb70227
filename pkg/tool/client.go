package tool

import (
	"github.com/Gradient-DS/soev.ai-sub000/pkg/adapter"
	"github.com/Gradient-DS/soev.ai-sub000/pkg/repository"
)

// Client contains shared resources that tools can use
type Client struct {
	Repo    repository.Repository
	Gemini  adapter.Gemini
	Storage adapter.Storage
}
