package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	confluent "github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"brewfeed/internal/config"
	"brewfeed/internal/kafka"
	"brewfeed/internal/models"
	"brewfeed/internal/services"
	"brewfeed/internal/storage"
)

// app 保存各子命令共享的依赖。仓库字段在测试中可直接注入。
type app struct {
	configPath string
	out        io.Writer

	cfg    config.Config
	logger *slog.Logger
	db     *gorm.DB

	users       storage.UserRepository
	friendships storage.FriendshipRepository
	tokens      storage.TokenRepository
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "admin",
		Short:        "Operator tools for the brewfeed backend",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(a.configPath)
			if err != nil {
				return fmt.Errorf("无法加载配置: %w", err)
			}
			a.cfg = cfg
			a.logger = config.NewLogger(cfg.LogLevel, cmd.ErrOrStderr())
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.db == nil {
				return nil
			}
			return storage.Close(a.db)
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a config file (default ./config/config.yaml)")

	var (
		status        string
		groupID       string
		fromBeginning bool
		topics        []string
	)

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.openDB(); err != nil {
				return err
			}
			if err := storage.AutoMigrateTables(a.db); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "schema up to date")
			return nil
		},
	}

	showUserCmd := &cobra.Command{
		Use:   "show-user <userId>",
		Short: "Print a user's public profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.showUser(cmd.Context(), args[0])
		},
	}

	listFriendshipsCmd := &cobra.Command{
		Use:   "list-friendships <userId>",
		Short: "List every relationship a user takes part in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.listFriendships(cmd.Context(), args[0], models.FriendshipStatus(status))
		},
	}
	listFriendshipsCmd.Flags().StringVar(&status, "status", string(models.FriendshipStatusAccepted), "pending or accepted")

	purgeTokensCmd := &cobra.Command{
		Use:   "purge-tokens",
		Short: "Delete expired session records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.purgeTokens(cmd.Context())
		},
	}

	tailEventsCmd := &cobra.Command{
		Use:   "tail-events",
		Short: "Print friendship and post events as they are published",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(topics) == 0 {
				topics = []string{a.cfg.Kafka.FriendshipTopic, a.cfg.Kafka.PostTopic}
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			consumer := kafka.NewEventConsumer(a.cfg.Kafka, a.logger)
			return consumer.Consume(ctx, topics, kafka.ConsumerOptions{GroupID: groupID, FromBeginning: fromBeginning}, a.printEvent)
		},
	}
	tailEventsCmd.Flags().StringVar(&groupID, "group", "brewfeed-admin-tail", "consumer group id")
	tailEventsCmd.Flags().BoolVar(&fromBeginning, "from-beginning", false, "start from the earliest retained offset")
	tailEventsCmd.Flags().StringSliceVar(&topics, "topic", nil, "topics to follow (default: friendship and post topics)")

	rootCmd.AddCommand(migrateCmd, showUserCmd, listFriendshipsCmd, purgeTokensCmd, tailEventsCmd)
	return rootCmd
}

// openDB 连接数据库并构建仓库。已注入仓库时不做任何事。
func (a *app) openDB() error {
	if a.db != nil || a.users != nil {
		return nil
	}
	db, err := storage.InitDB(a.cfg.Database)
	if err != nil {
		return fmt.Errorf("无法初始化数据库: %w", err)
	}
	a.db = db
	a.users = storage.NewGormUserRepository(db)
	a.friendships = storage.NewGormFriendshipRepository(db)
	a.tokens = storage.NewGormTokenRepository(db)
	return nil
}

func (a *app) showUser(ctx context.Context, rawID string) error {
	id, err := storage.ParseID(rawID)
	if err != nil {
		return err
	}
	if err := a.openDB(); err != nil {
		return err
	}
	user, err := services.NewUserService(a.users).GetProfile(ctx, id)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(user)
}

func (a *app) listFriendships(ctx context.Context, rawID string, status models.FriendshipStatus) error {
	if status != models.FriendshipStatusPending && status != models.FriendshipStatusAccepted {
		return fmt.Errorf("unknown status %q", status)
	}
	id, err := storage.ParseID(rawID)
	if err != nil {
		return err
	}
	if err := a.openDB(); err != nil {
		return err
	}
	friendships, err := a.friendships.ListByUserAndStatus(ctx, id, models.RoleAny, status)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSENDER\tRECEIVER\tSTATUS\tCREATED")
	for _, f := range friendships {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", f.ID, f.SenderID, f.ReceiverID, f.Status, models.ISOTime(f.CreatedAt))
	}
	return tw.Flush()
}

func (a *app) purgeTokens(ctx context.Context) error {
	if err := a.openDB(); err != nil {
		return err
	}
	authService := services.NewAuthService(a.users, a.tokens, nil, a.cfg.Auth, a.logger)
	n, err := authService.PurgeExpiredTokens(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "purged %d expired tokens\n", n)
	return nil
}

func (a *app) printEvent(_ context.Context, msg *confluent.Message) error {
	if msg.TopicPartition.Topic == nil {
		return errors.New("message without topic")
	}
	_, err := fmt.Fprintf(a.out, "%s\t%s\t%s\n", *msg.TopicPartition.Topic, msg.Key, msg.Value)
	return err
}
