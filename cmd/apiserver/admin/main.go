package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"friendnet/internal/config"
	appKafka "friendnet/internal/kafka"
	kafkahandlers "friendnet/internal/kafka/handlers"
	"friendnet/internal/logger"
	"friendnet/internal/models"
	"friendnet/internal/storage"
)

const timeLayout = "2006-01-02 15:04:05"

func usage() {
	fmt.Fprintln(os.Stderr, "usage:")
	fmt.Fprintln(os.Stderr, "  admin [-config path] list-requests [Pending|Accepted|Rejected]")
	fmt.Fprintln(os.Stderr, "  admin [-config path] show-request <requestID>")
	fmt.Fprintln(os.Stderr, "  admin [-config path] tail-events")
}

func main() {
	configPath := flag.String("config", "", "path to a config file")
	flag.Usage = usage
	flag.Parse()
	args := flag.Args()
	if len(args) < 1 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to load config")
	}
	logger.InitLogger(cfg.LogLevel, "text")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "list-requests":
		status := models.FriendRequestStatus("")
		if len(args) > 1 {
			status = models.FriendRequestStatus(args[1])
			if !status.Valid() {
				logger.Log.Fatalf("unknown status %q", args[1])
			}
		}
		repos := openRepositories(cfg)
		err = listRequests(ctx, repos.friendRequests, status)

	case "show-request":
		if len(args) < 2 {
			logger.Log.Fatal("show-request needs a request id")
		}
		id, parseErr := storage.ParseID(args[1])
		if parseErr != nil {
			logger.Log.WithError(parseErr).Fatal("invalid request id")
		}
		repos := openRepositories(cfg)
		err = showRequest(ctx, repos, id)

	case "tail-events":
		err = tailEvents(ctx, cfg.Kafka)

	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		logger.Log.WithError(err).Fatal(args[0] + " failed")
	}
}

type repositories struct {
	users          storage.UserRepository
	friendRequests storage.FriendRequestRepository
}

func openRepositories(cfg config.Config) repositories {
	if cfg.Database.Type == "memory" {
		logger.Log.Fatal("the admin tool needs a persistent database, DATABASE.TYPE is memory")
	}
	db, err := storage.InitDB(cfg.Database)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to initialize database")
	}
	return repositories{
		users:          storage.NewGormUserRepository(db),
		friendRequests: storage.NewGormFriendRequestRepository(db),
	}
}

func listRequests(ctx context.Context, repo storage.FriendRequestRepository, status models.FriendRequestStatus) error {
	requests, err := repo.List(ctx, storage.FriendRequestFilter{Status: status})
	if err != nil {
		return fmt.Errorf("list friend requests: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSENDER\tRECEIVER\tSTATUS\tCREATED AT")
	for _, fr := range requests {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			fr.ID, fr.Sender.Username, fr.Receiver.Username, fr.Status, fr.CreatedAt.Format(timeLayout))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("%d request(s)\n", len(requests))
	return nil
}

func showRequest(ctx context.Context, repos repositories, id uint) error {
	fr, err := repos.friendRequests.GetRequestByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("friend request %d does not exist", id)
	} else if err != nil {
		return fmt.Errorf("load friend request %d: %w", id, err)
	}

	describe := func(userID uint) string {
		u, err := repos.users.GetByID(ctx, userID)
		if err != nil {
			return fmt.Sprintf("#%d (lookup failed: %v)", userID, err)
		}
		return fmt.Sprintf("#%d %s <%s>", u.ID, u.Username, u.Email)
	}

	fmt.Printf("Friend request %d\n", fr.ID)
	fmt.Println("--------------------------------------")
	fmt.Printf("Sender:     %s\n", describe(fr.SenderID))
	fmt.Printf("Receiver:   %s\n", describe(fr.ReceiverID))
	fmt.Printf("Status:     %s\n", fr.Status)
	fmt.Printf("Created at: %s\n", fr.CreatedAt.Format(timeLayout))
	fmt.Printf("Updated at: %s\n", fr.UpdatedAt.Format(timeLayout))
	return nil
}

func tailEvents(ctx context.Context, cfg config.KafkaConfig) error {
	consumer := appKafka.NewConfluentKafkaConsumer(cfg)
	defer consumer.Close()

	logic := kafkahandlers.NewFriendRequestConsumerLogic(func(_ context.Context, e models.FriendRequestEvent) error {
		fmt.Printf("%s  %-26s request=%d sender=%d receiver=%d status=%s actor=%d\n",
			e.Timestamp.Format(time.RFC3339), e.Type, e.RequestID, e.SenderID, e.ReceiverID, e.Status, e.ActorID)
		return nil
	})

	logger.Log.WithField("topic", cfg.FriendRequestTopic).Info("tailing friend request events, Ctrl-C to stop")
	err := consumer.Consume(ctx, []string{cfg.FriendRequestTopic}, cfg.ConsumerGroup, logic.HandleFriendRequestEvent)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
