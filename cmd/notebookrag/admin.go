package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/notebookrag/internal/pkg/jwt"
	"github.com/xxxsen/notebookrag/internal/rag"
	"github.com/xxxsen/notebookrag/internal/repo"
	"github.com/xxxsen/notebookrag/internal/service"
	"github.com/xxxsen/notebookrag/internal/sourcestore"
)

func addAdminCommands(root *cobra.Command, configPath *string) {
	root.AddCommand(
		newIngestCmd(configPath),
		newTokenCmd(configPath),
		newCollectionCmd(configPath),
		newShareCmd(configPath),
		newCleanupCmd(configPath),
	)
}

func newIngestCmd(configPath *string) *cobra.Command {
	var (
		req           service.IngestRequest
		maxTokens     int
		overlapTokens int
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "chunk and embed a pre-extracted text object into a collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, sqlDB, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer sqlDB.Close()
			ctx := cmd.Context()
			store, err := sourcestore.New(cfg.SourceStore)
			if err != nil {
				return fmt.Errorf("init source store: %w", err)
			}
			embedder, err := buildEmbedder(cfg, repo.NewEmbeddingCacheRepo(sqlDB))
			if err != nil {
				return err
			}
			svc := service.NewIngestService(repo.NewCollectionRepo(sqlDB), store,
				rag.NewChunker(maxTokens, overlapTokens), embedder, repo.NewChunkRepo(sqlDB))
			res, err := svc.Ingest(ctx, req)
			if err != nil {
				return err
			}
			logutil.GetLogger(ctx).Info("ingest finished", zap.String("key", req.Key), zap.Int("stored", res.Stored), zap.Int("total", res.Total))
			fmt.Fprintf(cmd.OutOrStdout(), "%d chunks stored, %d in collection\n", res.Stored, res.Total)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.UserID, "user", "", "owner or member user id; chunks are stored under the collection owner")
	cmd.Flags().StringVar(&req.CollectionID, "collection", "", "collection id")
	cmd.Flags().StringVar(&req.Key, "key", "", "source object key")
	cmd.Flags().StringVar(&req.FileName, "file-name", "", "file name shown in citations, defaults to the key base name")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "approximate tokens per chunk")
	cmd.Flags().IntVar(&overlapTokens, "overlap-tokens", 0, "approximate overlap between chunks")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("collection")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func newTokenCmd(configPath *string) *cobra.Command {
	var (
		userID string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "issue an owner access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = time.Duration(cfg.JWTTTLHours) * time.Hour
			}
			token, err := jwt.GenerateToken(userID, []byte(cfg.JWTSecret), ttl)
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime, defaults to jwt_ttl_hours")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newAdminService(configPath string) (*service.AdminService, func(), error) {
	_, sqlDB, err := bootstrap(configPath)
	if err != nil {
		return nil, nil, err
	}
	svc := service.NewAdminService(repo.NewCollectionRepo(sqlDB), repo.NewShareRepo(sqlDB))
	return svc, func() { _ = sqlDB.Close() }, nil
}

func newCollectionCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collection",
		Short: "manage collections",
	}

	var ownerID, name string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "create a collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := newAdminService(*configPath)
			if err != nil {
				return err
			}
			defer closeFn()
			item, err := svc.CreateCollection(cmd.Context(), ownerID, name)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), item.ID)
			return nil
		},
	}
	createCmd.Flags().StringVar(&ownerID, "owner", "", "owner user id")
	createCmd.Flags().StringVar(&name, "name", "", "collection name")
	_ = createCmd.MarkFlagRequired("owner")
	_ = createCmd.MarkFlagRequired("name")

	var memberOwner, collectionID, userID string
	memberCmd := &cobra.Command{
		Use:   "add-member",
		Short: "grant a user chat access to a collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := newAdminService(*configPath)
			if err != nil {
				return err
			}
			defer closeFn()
			return svc.AddMember(cmd.Context(), memberOwner, collectionID, userID)
		},
	}
	memberCmd.Flags().StringVar(&memberOwner, "owner", "", "owner user id")
	memberCmd.Flags().StringVar(&collectionID, "collection", "", "collection id")
	memberCmd.Flags().StringVar(&userID, "user", "", "member user id")
	_ = memberCmd.MarkFlagRequired("owner")
	_ = memberCmd.MarkFlagRequired("collection")
	_ = memberCmd.MarkFlagRequired("user")

	cmd.AddCommand(createCmd, memberCmd)
	return cmd
}

func newShareCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "share",
		Short: "manage share links",
	}

	var (
		ownerID, collectionID, permission string
		ttl                               time.Duration
	)
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "issue a share token",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := newAdminService(*configPath)
			if err != nil {
				return err
			}
			defer closeFn()
			share, err := svc.CreateShare(cmd.Context(), ownerID, collectionID, permission, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "id=%s token=%s\n", share.ID, share.Token)
			return nil
		},
	}
	createCmd.Flags().StringVar(&ownerID, "owner", "", "owner user id")
	createCmd.Flags().StringVar(&collectionID, "collection", "", "collection id")
	createCmd.Flags().StringVar(&permission, "permission", "chat", "view or chat")
	createCmd.Flags().DurationVar(&ttl, "ttl", 0, "lifetime, 0 never expires")
	_ = createCmd.MarkFlagRequired("owner")
	_ = createCmd.MarkFlagRequired("collection")

	var revokeOwner, shareID string
	revokeCmd := &cobra.Command{
		Use:   "revoke",
		Short: "revoke a share token",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := newAdminService(*configPath)
			if err != nil {
				return err
			}
			defer closeFn()
			return svc.RevokeShare(cmd.Context(), revokeOwner, shareID)
		},
	}
	revokeCmd.Flags().StringVar(&revokeOwner, "owner", "", "owner user id")
	revokeCmd.Flags().StringVar(&shareID, "id", "", "share id")
	_ = revokeCmd.MarkFlagRequired("owner")
	_ = revokeCmd.MarkFlagRequired("id")

	cmd.AddCommand(createCmd, revokeCmd)
	return cmd
}

func newCleanupCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "run the retention jobs once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, sqlDB, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer sqlDB.Close()
			cacheRepo := repo.NewEmbeddingCacheRepo(sqlDB)
			auditRepo := repo.NewAuditRepo(sqlDB)
			scheduler, err := buildScheduler(cfg, cacheRepo, auditRepo)
			if err != nil {
				return err
			}
			for _, name := range []string{"embedding_cache_cleanup", "chat_audit_cleanup"} {
				if err := scheduler.RunNow(cmd.Context(), name); err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
			}
			return nil
		},
	}
}
