package execution_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/testwiseco/testwise/pkg/execution"
)

var _ = Describe("NewCmdEngine", func() {
	It("requires a discover command", func() {
		_, err := execution.NewCmdEngine(nil, []string{"run"}, "", zap.NewNop())
		Expect(err).To(MatchError(ContainSubstring("discover command is required")))
	})

	It("requires a run command", func() {
		_, err := execution.NewCmdEngine([]string{"discover"}, nil, "", zap.NewNop())
		Expect(err).To(MatchError(ContainSubstring("run command is required")))
	})
})

var _ = Describe("CmdEngine", func() {
	ctx := context.Background()

	newEngine := func(discoverScript, runScript string) *execution.CmdEngine {
		engine, err := execution.NewCmdEngine(
			[]string{"sh", "-c", discoverScript},
			[]string{"sh", "-c", runScript},
			"",
			zap.NewNop(),
		)
		Expect(err).NotTo(HaveOccurred())
		return engine
	}

	Describe("DiscoverTests", func() {
		It("decodes the JSON test listing from stdout", func() {
			engine := newEngine(
				`echo '[{"id":"login works","source_path":"src/login_test.go","tags":["ui"]}]'`,
				`echo '{}'`,
			)

			details, err := engine.DiscoverTests(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(details).To(Equal([]execution.TestDetails{
				{ID: "login works", SourcePath: "src/login_test.go", Tags: []string{"ui"}},
			}))
		})

		It("fails when the command exits non-zero", func() {
			engine := newEngine(`echo boom >&2; exit 3`, `echo '{}'`)

			_, err := engine.DiscoverTests(ctx)
			Expect(err).To(MatchError(ContainSubstring("discover command failed")))
			Expect(err).To(MatchError(ContainSubstring("boom")))
		})

		It("fails on undecodable output", func() {
			engine := newEngine(`echo 'not json'`, `echo '{}'`)

			_, err := engine.DiscoverTests(ctx)
			Expect(err).To(MatchError(ContainSubstring("decoding discover output")))
		})
	})

	Describe("RunTests", func() {
		It("passes the requested ids on stdin and decodes the outcomes", func() {
			// The run script echoes its stdin to stderr for inspection and
			// answers with fixed outcomes.
			engine := newEngine(
				`echo '[]'`,
				`cat >&2; echo '{"outcomes":{"a":"passed","b":"failed"}}'`,
			)

			summary, err := engine.RunTests(ctx, []string{"a", "b"})
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Total).To(Equal(2))
			Expect(summary.Passed).To(Equal(1))
			Expect(summary.Failed).To(Equal(1))
			Expect(summary.ExitCode()).To(Equal(1))
		})

		It("accepts a non-zero exit when outcomes are present", func() {
			engine := newEngine(
				`echo '[]'`,
				`echo '{"outcomes":{"a":"failed"}}'; exit 1`,
			)

			summary, err := engine.RunTests(ctx, []string{"a"})
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Failed).To(Equal(1))
		})

		It("fails on undecodable run output", func() {
			engine := newEngine(`echo '[]'`, `echo garbage`)

			_, err := engine.RunTests(ctx, []string{"a"})
			Expect(err).To(MatchError(ContainSubstring("decoding run output")))
		})
	})

	Describe("RunAll", func() {
		It("requests a full run", func() {
			// The run script fails unless stdin requests all tests.
			engine := newEngine(
				`echo '[]'`,
				`grep -q '"all":true' && echo '{"outcomes":{"a":"passed"}}'`,
			)

			summary, err := engine.RunAll(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.Passed).To(Equal(1))
		})
	})
})
