/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>

*/
package cmd

import (
	"fmt"
	"log"

	"github.com/mautops/governance-gin/internal/config"
	"github.com/mautops/governance-gin/internal/container"
	"github.com/spf13/cobra"
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile [case-id]",
	Short: "Run a reconciliation pass",
	Long: `Run a single reconciliation pass over submissions.
Without arguments it reconciles every non-terminal submission once.
With a case ID it reconciles only that submission.

Each pass advances a submission by at most one lifecycle step,
so repeated runs are safe and converge to a stable state.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. 加载配置
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// 2. 初始化容器
		ctr, err := container.NewContainer(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize container: %w", err)
		}
		defer ctr.Close()

		// 3. 执行对账
		if len(args) == 1 {
			sub, err := ctr.SubmissionManager().Reconcile(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to reconcile %s: %w", args[0], err)
			}
			log.Printf("Submission %s is now %s", sub.ID, sub.Workflow.LifecycleStatus)
			return nil
		}

		advanced, err := ctr.SubmissionManager().ReconcileAll(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to reconcile: %w", err)
		}
		log.Printf("Reconciliation completed, %d submissions advanced", advanced)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().String("config", "", "Config file path (default: config.yaml)")
}
