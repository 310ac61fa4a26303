package anthropic

import (
	"testing"

	"github.com/harunnryd/libradesk/internal/model/contract"

	"github.com/stretchr/testify/assert"
)

func TestAlternate(t *testing.T) {
	in := []contract.Message{
		{Role: contract.RoleAssistant, Content: "welcome"},
		{Role: contract.RoleUser, Content: "hi"},
		{Role: contract.RoleUser, Content: "anyone?"},
		{Role: contract.RoleAssistant, Content: "hello"},
		{Role: contract.RoleUser, Content: "hours?"},
	}

	out := alternate(in)
	assert.Equal(t, []contract.Message{
		{Role: contract.RoleUser, Content: "hi\n\nanyone?"},
		{Role: contract.RoleAssistant, Content: "hello"},
		{Role: contract.RoleUser, Content: "hours?"},
	}, out)
}
