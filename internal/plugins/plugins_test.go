package plugins

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/newslookout/newslookout/internal/processors/stubs"
	"github.com/newslookout/newslookout/internal/retrievers/offline"
	"github.com/newslookout/newslookout/internal/retrievers/webindex"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	for _, name := range []string{webindex.ModuleName, offline.ModuleName} {
		assert.True(t, r.HasRetriever(name), "retriever %s should be registered", name)
	}

	for _, name := range []string{
		NameSplitText,
		NameSummarizeOllama,
		NameSummarizeChatGPT,
		NameSummarizeGemini,
		NamePersistData,
		NameCmdline,
		stubs.NameClassify,
		stubs.NameDedupe,
		stubs.NameVectorStore,
	} {
		assert.True(t, r.HasProcessor(name), "processor %s should be registered", name)
	}

	assert.False(t, r.HasRetriever("mod_unknown"))
	assert.False(t, r.HasProcessor("mod_unknown"))
}
