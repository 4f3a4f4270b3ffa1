package assistant

import (
	"strings"

	"github.com/memohai/linerag/internal/registry"
)

// command is a recognized text instruction.
type command int

const (
	cmdNone command = iota
	cmdListFiles
	cmdSwitchPersonal
	cmdSwitchKnowledge
	cmdCurrentMode
)

var (
	listFilesKeywords = []string{
		"列出檔案", "列出文件", "顯示檔案", "顯示文件", "查看檔案", "查看文件",
		"檔案列表", "文件列表", "有哪些檔案", "有哪些文件", "我的檔案", "我的文件",
		"list files", "show files", "my files",
	}
	modeSwitchTriggers = []string{"模式", "切換", "mode", "switch"}
	knowledgeKeywords  = []string{"知識庫", "知識庫模式", "使用知識庫", "切換知識庫", "knowledge", "knowledge base"}
	personalKeywords   = []string{"個人檔案", "個人模式", "我的檔案", "私人檔案", "切換個人", "使用個人", "personal", "my files", "personal mode"}
	currentModeQueries = []string{"模式", "目前模式", "當前模式", "mode", "current mode"}
	politePrefixes     = []string{"please ", "pls ", "請"}
)

// parseCommand checks, in order, for a mode switch, a current mode query and
// a list files request. Anything else is a question. Mode and list commands
// must make up the whole message, so questions that mention "my files" are
// still answered.
func parseCommand(text string) command {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return cmdNone
	}
	if containsAny(t, modeSwitchTriggers) {
		switch {
		case containsAny(t, knowledgeKeywords):
			return cmdSwitchKnowledge
		case containsAny(t, personalKeywords):
			return cmdSwitchPersonal
		}
	}
	bare := bareCommand(t)
	if equalsAny(bare, currentModeQueries) {
		return cmdCurrentMode
	}
	if equalsAny(bare, listFilesKeywords) {
		return cmdListFiles
	}
	return cmdNone
}

// bareCommand strips a polite prefix and trailing punctuation.
func bareCommand(t string) string {
	for _, p := range politePrefixes {
		t = strings.TrimPrefix(t, p)
	}
	return strings.TrimSpace(strings.TrimRight(t, " ?!.？！。～~"))
}

func equalsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if s == k {
			return true
		}
	}
	return false
}

func (c command) targetMode() registry.Mode {
	if c == cmdSwitchKnowledge {
		return registry.ModeKnowledge
	}
	return registry.ModePersonal
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
