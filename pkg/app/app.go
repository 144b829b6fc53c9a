package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"

	"gopkg.in/yaml.v3"

	"github.com/zurustar/valgo/pkg/ast"
	"github.com/zurustar/valgo/pkg/cli"
	"github.com/zurustar/valgo/pkg/graphics"
	"github.com/zurustar/valgo/pkg/logger"
	"github.com/zurustar/valgo/pkg/opcode"
	"github.com/zurustar/valgo/pkg/source"
	"github.com/zurustar/valgo/pkg/style"
	"github.com/zurustar/valgo/pkg/vm"
)

// ExitUsage は引数の誤りで終了するときの終了コード
const ExitUsage = 2

// Document は出力する命令ログ。境界ダンプは要求されたときだけ含まれる。
type Document struct {
	Instructions []opcode.OpCode `json:"instructions" yaml:"instructions"`
	Boundaries   *vm.Boundaries  `json:"boundaries,omitempty" yaml:"boundaries,omitempty"`
}

// Application はアプリケーションのメインロジックを管理する
type Application struct {
	config *cli.Config
	log    *slog.Logger
	stdout io.Writer
	stderr io.Writer

	program *ast.Program
	lines   []string
	sheet   *style.Sheet
}

// New Applicationを作成
func New(stdout, stderr io.Writer) *Application {
	return &Application{
		stdout: stdout,
		stderr: stderr,
	}
}

// Run アプリケーションを実行し、プロセスの終了コードを返す
func (app *Application) Run(args []string) int {
	// 1. コマンドライン引数の解析
	config, err := cli.ParseArgs(args)
	if err != nil {
		fmt.Fprintf(app.stderr, "Error: %v\n", err)
		return ExitUsage
	}
	app.config = config

	if config.ShowHelp {
		cli.PrintHelp()
		return int(vm.ExitSuccess)
	}

	// 2. ロガーの初期化（標準エラーへ）
	if err := logger.InitLoggerTo(app.stderr, config.LogLevel); err != nil {
		fmt.Fprintf(app.stderr, "Error: %v\n", err)
		return ExitUsage
	}
	app.log = logger.GetLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	status, err := app.run(ctx)
	if err != nil {
		fmt.Fprintf(app.stderr, "Error: %v\n", err)
	}
	return int(status)
}

func (app *Application) run(ctx context.Context) (vm.ExitStatus, error) {
	if app.config.ProgramPath == "" {
		return ExitUsage, errors.New("no program given (see --help)")
	}

	// 3. 入力の読み込み
	if err := app.loadProgram(); err != nil {
		return loadStatus(err), err
	}
	if err := app.loadSource(); err != nil {
		return loadStatus(err), err
	}
	if err := app.loadStylesheet(); err != nil {
		return loadStatus(err), err
	}

	// 4. 実行
	machine := vm.New(app.program,
		vm.WithLogger(app.log),
		vm.WithSource(app.lines),
		vm.WithStylesheet(app.sheet),
		vm.WithMaxDepth(app.config.MaxDepth),
		vm.WithMaxLoops(app.config.MaxLoops),
		vm.WithReturnBoundaries(app.config.Boundaries),
	)
	res, err := machine.Run(ctx)
	if err != nil {
		return res.Status, err
	}

	// 5. 出力
	doc := Document{Instructions: res.OpCodes, Boundaries: res.Boundaries}
	if err := app.writeDocument(doc); err != nil {
		return vm.ExitPathError, err
	}
	if app.config.SnapshotPath != "" {
		if err := graphics.SavePNG(app.config.SnapshotPath, res.OpCodes, graphics.DefaultScale); err != nil {
			return vm.ExitPathError, err
		}
		app.log.Info("Snapshot saved", "path", app.config.SnapshotPath)
	}

	app.log.Info("Application terminated normally", "instructions", len(res.OpCodes))
	return res.Status, nil
}

// loadStatus はファイルが見つからない場合 ExitPathError、
// 内容が読めない場合 ExitSyntaxError を返す
func loadStatus(err error) vm.ExitStatus {
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return vm.ExitPathError
	}
	return vm.ExitSyntaxError
}

// loadProgram 型検査済みプログラムを読み込む
func (app *Application) loadProgram() error {
	p, err := ast.LoadProgramFile(app.config.ProgramPath)
	if err != nil {
		return err
	}
	app.program = p
	app.log.Info("Program loaded",
		"path", app.config.ProgramPath,
		"functions", len(p.Functions),
		"statements", len(p.Statements))
	return nil
}

// loadSource コードパネル用のソーステキストを読み込む（省略可）
func (app *Application) loadSource() error {
	if app.config.SourcePath == "" {
		app.log.Debug("No source text, panels are not drawn")
		return nil
	}
	file, err := source.Load(app.config.SourcePath, app.config.Encoding)
	if err != nil {
		return err
	}
	app.lines = file.Lines
	app.log.Info("Source loaded", "name", file.FileName, "encoding", file.Encoding, "lines", len(file.Lines))
	return nil
}

// loadStylesheet スタイルシートを読み込み、プログラムと照合する
func (app *Application) loadStylesheet() error {
	if app.config.StylesheetPath == "" {
		return nil
	}
	sheet, err := style.LoadFile(app.config.StylesheetPath)
	if err != nil {
		return err
	}
	warnings := sheet.Validate(ast.Identifiers(app.program), app.log)
	app.sheet = sheet
	app.log.Info("Stylesheet loaded", "path", app.config.StylesheetPath, "warnings", len(warnings))
	return nil
}

// writeDocument 命令ログを指定された形式で書き出す
func (app *Application) writeDocument(doc Document) error {
	w := app.stdout
	if app.config.OutputPath != "-" {
		f, err := os.Create(app.config.OutputPath)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch app.config.Format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to write instruction log: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to write instruction log: %w", err)
		}
		return nil
	}
}
