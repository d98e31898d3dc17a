package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pipfun/walletlink/adapters/store"
	"github.com/pipfun/walletlink/internal/crypto"
	"github.com/pipfun/walletlink/service"
)

// NewKeypairCmd creates the command printing the profile's dapp encryption key
func NewKeypairCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keypair",
		Short: "Print the dapp encryption public key of the local profile",
		Long:  "Opens the LevelDB profile at leveldb_path and prints its deep-link encryption public key, creating the key pair on first use.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			db, err := store.OpenLevelDBStore(cfg.LevelDBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			keys, err := service.NewKeyStore(db, log).GetOrCreateKeyPair(context.Background())
			if err != nil {
				return err
			}

			log.Debug("profile key pair ready", zap.String("path", cfg.LevelDBPath))
			fmt.Fprintln(cmd.OutOrStdout(), crypto.EncodeBase58(keys.PublicKey[:]))
			return nil
		},
	}
}
