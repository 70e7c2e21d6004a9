package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はHTTPサーバーモードで起動することを示す。
	CommandServe Command = "serve"
	// CommandSitemap はサイトマップをファイルに書き出すことを示す。
	CommandSitemap Command = "sitemap"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析する。
// 引数が空またはサポート外のコマンドの場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch args[0] {
	case "serve":
		return CommandServe
	case "sitemap":
		return CommandSitemap
	case "healthcheck":
		return CommandHealthcheck
	default:
		return CommandServe
	}
}

// sitemapPath はsitemapサブコマンドの出力先を返す。
// mdpress sitemap [path] のpathが省略された場合はdefaultPathを使う。
func sitemapPath(args []string, defaultPath string) string {
	if len(args) >= 2 && args[1] != "" {
		return args[1]
	}
	return defaultPath
}
