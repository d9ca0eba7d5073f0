package app

import (
	"fmt"
	"slices"
	"strings"
)

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	CommandServe       Command = "serve"       // APIサーバー
	CommandWorker      Command = "worker"      // リマインダーエンジンと定期ジョブ
	CommandMigrate     Command = "migrate"     // マイグレーションの適用
	CommandHealthcheck Command = "healthcheck" // distroless環境でのDockerヘルスチェック用
)

// Commands はサポートするサブコマンドの一覧。
var Commands = []Command{CommandServe, CommandWorker, CommandMigrate, CommandHealthcheck}

// ParseCommand はコマンドライン引数の先頭からサブコマンドを解析する。
// 引数が空の場合はCommandServeを返す。未知のサブコマンドはエラーとする。
func ParseCommand(args []string) (Command, error) {
	if len(args) == 0 {
		return CommandServe, nil
	}

	cmd := Command(strings.ToLower(strings.TrimSpace(args[0])))
	if !slices.Contains(Commands, cmd) {
		return "", fmt.Errorf("unknown command %q (available: %s)", args[0], commandList())
	}
	return cmd, nil
}

func commandList() string {
	names := make([]string, len(Commands))
	for i, c := range Commands {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
