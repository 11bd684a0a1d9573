package sandbox

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bentossell/fragg-sub002/internal/logging"
)

// templateSpec describes how a sandbox template hosts generated code
type templateSpec struct {
	entryFile  string
	port       int
	installCmd string // "" means no install step
	startCmd   string // "" means the template serves automatically
}

var templateSpecs = map[string]templateSpec{
	"static": {
		entryFile: "index.html",
		port:      3000,
	},
	"nextjs-developer": {
		entryFile:  "pages/index.tsx",
		port:       3000,
		installCmd: "npm install {deps}",
		startCmd:   "npm run dev",
	},
	"streamlit-developer": {
		entryFile:  "app.py",
		port:       8501,
		installCmd: "pip install {deps}",
		startCmd:   "streamlit run app.py --server.port 8501 --server.headless true",
	},
	"gradio-developer": {
		entryFile:  "app.py",
		port:       7860,
		installCmd: "pip install {deps}",
		startCmd:   "python app.py",
	},
}

// Preview is a running instance of a generated app
type Preview struct {
	SandboxID string `json:"sandbox_id"`
	Template  string `json:"template"`
	URL       string `json:"url"`
}

// Runner deploys generated code into a sandbox and waits for it to serve
type Runner struct {
	host         Host
	pollAttempts int
	pollInterval time.Duration
	log          *zap.Logger
}

func NewRunner(host Host, pollAttempts int, pollInterval time.Duration) *Runner {
	return &Runner{
		host:         host,
		pollAttempts: pollAttempts,
		pollInterval: pollInterval,
		log:          logging.Named("preview"),
	}
}

// Run provisions a sandbox for the template, writes the generated code,
// installs dependencies, starts the app, and returns its URL once the
// sandbox answers HTTP.
func (r *Runner) Run(ctx context.Context, template, code string, deps []string) (*Preview, error) {
	spec, ok := templateSpecs[template]
	if !ok {
		return nil, fmt.Errorf("unknown template: %s", template)
	}

	sb, err := r.host.Create(ctx, template)
	if err != nil {
		return nil, fmt.Errorf("sandbox create: %w", err)
	}

	cleanup := func() {
		killCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := r.host.Kill(killCtx, sb.ID); err != nil {
			r.log.Warn("sandbox cleanup failed", zap.String("id", sb.ID), zap.Error(err))
		}
	}

	if err := r.host.WriteFile(ctx, sb.ID, spec.entryFile, code); err != nil {
		cleanup()
		return nil, fmt.Errorf("write %s: %w", spec.entryFile, err)
	}

	if spec.installCmd != "" && len(deps) > 0 {
		cmd := strings.Replace(spec.installCmd, "{deps}", strings.Join(deps, " "), 1)
		res, err := r.host.RunCommand(ctx, sb.ID, cmd)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("install dependencies: %w", err)
		}
		if res.ExitCode != 0 {
			r.log.Warn("dependency install failed, starting anyway",
				zap.String("id", sb.ID),
				zap.Int("exit_code", res.ExitCode),
				zap.String("stderr", res.Stderr))
		}
	}

	if spec.startCmd != "" {
		// Start commands block, so failures surface through the readiness
		// poll rather than the command result
		if _, err := r.host.RunCommand(ctx, sb.ID, spec.startCmd+" > /tmp/app.log 2>&1 &"); err != nil {
			cleanup()
			return nil, fmt.Errorf("start app: %w", err)
		}
	}

	url, err := r.host.URL(sb.ID, spec.port)
	if err != nil {
		cleanup()
		return nil, err
	}

	if err := WaitReady(ctx, url, r.pollAttempts, r.pollInterval); err != nil {
		cleanup()
		return nil, err
	}

	r.log.Info("preview ready",
		zap.String("id", sb.ID),
		zap.String("template", template),
		zap.String("url", url))

	return &Preview{SandboxID: sb.ID, Template: template, URL: url}, nil
}
