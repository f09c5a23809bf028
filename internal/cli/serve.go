package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mwiater/gyan/internal/server"
)

// serveCmd runs the HTTP API until interrupted.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the retrieval API over HTTP",
	Long:  `Loads the dictionary, corpus and inference graph once, then serves POST /chat, POST /search, GET /healthz and GET /metrics.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := requireConfig()
		if err != nil {
			return err
		}
		eng, err := bootstrap(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		return server.New(eng.service, eng.metrics, cfg).ListenAndServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().String("listen", "", "listen address (overrides server.listenAddr)")
	_ = viper.BindPFlag("server.listenAddr", serveCmd.Flags().Lookup("listen"))
	rootCmd.AddCommand(serveCmd)
}
