// Package plugins wires the built-in stages into a registry. The
// plugin name in the configuration file selects the implementation;
// everything else about a stage comes from its own options table.
package plugins

import (
	"github.com/newslookout/newslookout/internal/pipeline"
	"github.com/newslookout/newslookout/internal/processors/cmdline"
	"github.com/newslookout/newslookout/internal/processors/llm"
	"github.com/newslookout/newslookout/internal/processors/persist"
	"github.com/newslookout/newslookout/internal/processors/splitter"
	"github.com/newslookout/newslookout/internal/processors/stubs"
	"github.com/newslookout/newslookout/internal/retrievers/offline"
	"github.com/newslookout/newslookout/internal/retrievers/webindex"
)

// Built-in processor plugin names.
const (
	NameSplitText        = "split_text"
	NameSummarizeOllama  = "mod_summarize_ollama"
	NameSummarizeChatGPT = "mod_summarize_chatgpt"
	NameSummarizeGemini  = "mod_summarize_gemini"
	NamePersistData      = "mod_persist_data"
	NameCmdline          = "mod_cmdline"
)

// DefaultRegistry returns a registry with every built-in stage
// registered.
func DefaultRegistry() *pipeline.Registry {
	r := pipeline.NewRegistry()

	r.RegisterRetriever(webindex.ModuleName, webindex.New)
	r.RegisterRetriever(offline.ModuleName, offline.New)

	r.RegisterProcessor(NameSplitText, splitter.New)
	r.RegisterProcessor(NameSummarizeOllama, llm.NewOllama)
	r.RegisterProcessor(NameSummarizeChatGPT, llm.NewOpenAI)
	r.RegisterProcessor(NameSummarizeGemini, llm.NewGemini)
	r.RegisterProcessor(NamePersistData, persist.New)
	r.RegisterProcessor(NameCmdline, cmdline.New)
	r.RegisterProcessor(stubs.NameClassify, stubs.NewForwarder)
	r.RegisterProcessor(stubs.NameDedupe, stubs.NewForwarder)
	r.RegisterProcessor(stubs.NameVectorStore, stubs.NewForwarder)

	return r
}
