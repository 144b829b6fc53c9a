package cli

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/zurustar/valgo/pkg/source"
)

// Config はコマンドライン引数から解析された設定を保持する
type Config struct {
	ProgramPath    string // 型検査済みプログラム (YAML)
	SourcePath     string // コードパネルに表示するソーステキスト
	StylesheetPath string // スタイルシート (YAML/JSON)
	Encoding       string // ソーステキストのエンコーディング
	OutputPath     string // 命令ログの出力先（"-" は標準出力）
	Format         string // 命令ログの形式（json, yaml）
	Boundaries     bool   // 境界ダンプを出力する
	SnapshotPath   string // レイアウトの PNG スナップショット
	MaxDepth       int    // 呼び出し深さの上限（0 は自動）
	MaxLoops       int    // ループ回数の上限（0 は既定値）
	LogLevel       string // ログレベル（debug, info, warn, error）
	ShowHelp       bool   // ヘルプ表示フラグ
}

// boolFlags は値を取らないフラグ
var boolFlags = map[string]bool{
	"-h": true, "--help": true, "-help": true,
	"--boundaries": true, "-boundaries": true,
}

// ParseArgs コマンドライン引数を解析してConfigを返す
func ParseArgs(args []string) (*Config, error) {
	// 引数を並べ替え：フラグを前に、位置引数を後ろに
	reorderedArgs := reorderArgs(args)

	fs := flag.NewFlagSet("valgo", flag.ContinueOnError)
	fs.Usage = func() {}

	config := &Config{}

	fs.StringVar(&config.ProgramPath, "program", "", "プログラムファイル")
	fs.StringVar(&config.ProgramPath, "p", "", "プログラムファイル（短縮形）")
	fs.StringVar(&config.SourcePath, "source", "", "ソーステキスト")
	fs.StringVar(&config.SourcePath, "s", "", "ソーステキスト（短縮形）")
	fs.StringVar(&config.StylesheetPath, "stylesheet", "", "スタイルシート")
	fs.StringVar(&config.Encoding, "encoding", source.EncodingAuto, "ソーステキストのエンコーディング")
	fs.StringVar(&config.OutputPath, "output", "-", "命令ログの出力先")
	fs.StringVar(&config.OutputPath, "o", "-", "命令ログの出力先（短縮形）")
	fs.StringVar(&config.Format, "format", "json", "命令ログの形式（json, yaml）")
	fs.BoolVar(&config.Boundaries, "boundaries", false, "境界ダンプを出力")
	fs.StringVar(&config.SnapshotPath, "snapshot", "", "PNG スナップショットの出力先")
	fs.IntVar(&config.MaxDepth, "max-depth", 0, "呼び出し深さの上限")
	fs.IntVar(&config.MaxLoops, "max-loops", 0, "ループ回数の上限")
	fs.StringVar(&config.LogLevel, "log-level", "info", "ログレベル（debug, info, warn, error）")
	fs.StringVar(&config.LogLevel, "l", "info", "ログレベル（短縮形）")
	fs.BoolVar(&config.ShowHelp, "help", false, "ヘルプを表示")
	fs.BoolVar(&config.ShowHelp, "h", false, "ヘルプを表示（短縮形）")

	if err := fs.Parse(reorderedArgs); err != nil {
		return nil, err
	}

	// 環境変数からの設定（コマンドラインフラグが優先）
	if config.LogLevel == "info" {
		if logLevelEnv := os.Getenv("LOG_LEVEL"); logLevelEnv != "" {
			config.LogLevel = strings.ToLower(logLevelEnv)
		}
	}
	if config.MaxDepth == 0 {
		config.MaxDepth = envInt("VALGO_MAX_DEPTH")
	}
	if config.MaxLoops == 0 {
		config.MaxLoops = envInt("VALGO_MAX_LOOPS")
	}

	// 上限の検証
	if config.MaxDepth < 0 {
		return nil, fmt.Errorf("max depth must be non-negative, got %d", config.MaxDepth)
	}
	if config.MaxLoops < 0 {
		return nil, fmt.Errorf("max loops must be non-negative, got %d", config.MaxLoops)
	}

	// ログレベルの検証
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[config.LogLevel] {
		return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.LogLevel)
	}

	// 出力形式の検証
	config.Format = strings.ToLower(config.Format)
	if config.Format != "json" && config.Format != "yaml" {
		return nil, fmt.Errorf("invalid format: %s (must be json or yaml)", config.Format)
	}

	// エンコーディングの検証
	config.Encoding = strings.ToLower(config.Encoding)
	switch config.Encoding {
	case source.EncodingAuto, source.EncodingUTF8, source.EncodingUTF16, source.EncodingShiftJIS, source.EncodingEUCJP:
	default:
		return nil, fmt.Errorf("invalid encoding: %s", config.Encoding)
	}

	// 位置引数（プログラムファイルのパス）
	if config.ProgramPath == "" && fs.NArg() > 0 {
		config.ProgramPath = fs.Arg(0)
	}

	return config, nil
}

// envInt は正の整数の環境変数を読む。未設定や不正な値は 0。
func envInt(name string) int {
	v := os.Getenv(name)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// reorderArgs 引数を並べ替えて、フラグを前に、位置引数を後ろに配置する
func reorderArgs(args []string) []string {
	var flags []string
	var positional []string

	for i := 0; i < len(args); i++ {
		arg := args[i]

		// フラグかどうかを判定（-または--で始まる）。"-" 単体は値
		if len(arg) > 1 && arg[0] == '-' {
			flags = append(flags, arg)

			// 次の引数が値である可能性をチェック（-o out.json のような場合）
			if strings.Contains(arg, "=") || boolFlags[arg] {
				continue
			}
			if i+1 < len(args) && (args[i+1] == "-" || len(args[i+1]) > 0 && args[i+1][0] != '-') {
				i++
				flags = append(flags, args[i])
			}
		} else {
			// 位置引数
			positional = append(positional, arg)
		}
	}

	// フラグを前に、位置引数を後ろに配置
	return append(flags, positional...)
}

// PrintHelp ヘルプメッセージを表示
func PrintHelp() {
	fmt.Fprintf(os.Stdout, `valgo - algorithm visualisation engine

Usage:
  valgo [options] [program]

Arguments:
  program       型検査済みプログラム (YAML) のパス。--program でも指定可能

Options:
  -p, --program <path>        プログラムファイル
  -s, --source <path>         コードパネルに表示するソーステキスト（省略時はパネルなし）
  --stylesheet <path>         スタイルシート (YAML/JSON)
  --encoding <name>           ソースのエンコーディング: auto, utf-8, utf-16, shift_jis, euc-jp（デフォルト: auto）
  -o, --output <path>         命令ログの出力先（デフォルト: - = 標準出力）
  --format <json|yaml>        命令ログの形式（デフォルト: json）
  --boundaries                境界ダンプを出力
  --snapshot <path>           レイアウトを PNG に保存
  --max-depth <n>             呼び出し深さの上限（デフォルト: 空きメモリから算出）
  --max-loops <n>             1 つのループの反復回数上限（デフォルト: 10000）
  -l, --log-level <level>     ログレベル: debug, info, warn, error（デフォルト: info）
  -h, --help                  このヘルプを表示

Environment Variables:
  LOG_LEVEL=<level>           ログレベル
  VALGO_MAX_DEPTH=<n>         呼び出し深さの上限
  VALGO_MAX_LOOPS=<n>         ループ回数の上限

Exit Status:
  0 成功、300 実行時エラー、101 ファイルが読めない

Examples:
  valgo prog.yaml -s prog.val                    命令ログを標準出力へ
  valgo prog.yaml -s prog.val --stylesheet s.yaml -o out.json
  valgo prog.yaml --boundaries --format yaml     境界ダンプ付き
  valgo prog.yaml --snapshot scene.png           レイアウトを確認
`)
}
