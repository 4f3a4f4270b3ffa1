package assistant

import "testing"

func TestParseCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want command
	}{
		{"", cmdNone},
		{"what is diabetes?", cmdNone},
		{"List Files", cmdListFiles},
		{"please show files", cmdListFiles},
		{"列出檔案", cmdListFiles},
		{"我的文件", cmdListFiles},
		{"mode", cmdCurrentMode},
		{" 目前模式 ", cmdCurrentMode},
		{"Current Mode", cmdCurrentMode},
		{"mode knowledge", cmdSwitchKnowledge},
		{"switch to knowledge base", cmdSwitchKnowledge},
		{"切換知識庫", cmdSwitchKnowledge},
		{"mode personal", cmdSwitchPersonal},
		{"切換個人模式", cmdSwitchPersonal},
		{"switch my files", cmdSwitchPersonal},
		{"my files", cmdListFiles},
		{"List files?", cmdListFiles},
		{"請列出檔案", cmdListFiles},
		{"what is in my files?", cmdNone},
		{"Summarize my files please", cmdNone},
		{"can you list files about insulin", cmdNone},
		{"我的檔案裡有什麼？", cmdNone},
		{"knowledge", cmdNone},
		{"which mode should I pick?", cmdNone},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			if got := parseCommand(tt.in); got != tt.want {
				t.Fatalf("parseCommand(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}
