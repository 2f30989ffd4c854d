// Package cli exposes operator commands against a running aggregator and
// its agents.
package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/absmach/fedlearn/messages"
	"github.com/absmach/fedlearn/pkg/sdk"
)

var fsdk sdk.SDK

func SetSDK(s sdk.SDK) {
	fsdk = s
}

func NewNodesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "nodes",
		Short: "List participants",
		Long:  `List known participants with their lease liveness.`,
		Run: func(cmd *cobra.Command, args []string) {
			nodes, err := fsdk.ListNodes()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, nodes)
		},
	}
}

func NewModelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "model",
		Short: "Show global model",
		Long:  `Fetch the latest global model parameters and round number.`,
		Run: func(cmd *cobra.Command, args []string) {
			global, err := fsdk.GetGlobalModel()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, global)
		},
	}
}

func NewStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show server status",
		Long:  `Probe the aggregator status endpoint.`,
		Run: func(cmd *cobra.Command, args []string) {
			status, err := fsdk.Status()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, status)
		},
	}
}

func NewTrainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "train <agent-url> <label> <feature>...",
		Short: "Send a training sample to an agent",
		Long:  `Send one labelled sample to an agent's local dataset.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) < 3 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			label, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			data := make([]float64, 0, len(args)-2)
			for _, arg := range args[2:] {
				f, err := strconv.ParseFloat(arg, 64)
				if err != nil {
					logErrorCmd(*cmd, err)

					return
				}
				data = append(data, f)
			}

			if err := fsdk.Train(args[0], messages.TrainRequest{
				Data:   data,
				Labels: []float64{label},
			}); err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logOKCmd(*cmd)
		},
	}
}
