package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/erain9/limitbook/pkg/db/queue"
	"github.com/erain9/limitbook/pkg/gateway"
	"github.com/erain9/limitbook/pkg/marketdata"
	"github.com/erain9/limitbook/pkg/messaging"
)

var (
	brokerAddr    = flag.String("broker", "localhost:9092", "Kafka broker address")
	commandsTopic = flag.String("commands-topic", "order-commands", "Order commands topic")
	reportsTopic  = flag.String("reports-topic", "execution-reports", "Execution reports topic")
	redisAddr     = flag.String("redis", "localhost:6379", "Redis address for top-of-book reads")
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	os.Args = append(os.Args[:1], os.Args[2:]...)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch command {
	case "insert":
		insertOrder(ctx)
	case "cancel":
		cancelOrder(ctx)
	case "modify":
		modifyOrder(ctx)
	case "top":
		topOfBook(ctx)
	case "tail-reports":
		tailReports()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: client <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  insert        Publish an insert command")
	fmt.Println("  cancel        Publish a cancel command")
	fmt.Println("  modify        Publish a modify command")
	fmt.Println("  top           Read the top-of-book snapshot for a symbol")
	fmt.Println("  tail-reports  Tail the execution reports topic")
}

func publishCommand(ctx context.Context, cmd *gateway.Command) {
	payload, err := json.Marshal(cmd)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to encode command")
	}

	writer := &kafka.Writer{
		Addr:     kafka.TCP(*brokerAddr),
		Topic:    *commandsTopic,
		Balancer: &kafka.Hash{},
	}
	defer writer.Close()

	// Key by symbol so all commands for one instrument stay ordered.
	err = writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(cmd.Symbol),
		Value: payload,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to publish command")
	}

	green := color.New(color.FgGreen).SprintfFunc()
	fmt.Println(green("Published %s %s on %s", cmd.Operation, cmd.OrderID, cmd.Symbol))
}

func insertOrder(ctx context.Context) {
	orderID := flag.String("id", "", "Order ID")
	symbol := flag.String("symbol", "AAPL", "Instrument symbol")
	side := flag.String("side", "BUY", "Order side (BUY or SELL)")
	quantity := flag.String("qty", "1.000", "Order quantity")
	price := flag.String("price", "", "Limit price")
	tif := flag.String("tif", "GTC", "Time in force (GTC or IOC)")
	flag.Parse()

	if *orderID == "" || *price == "" {
		log.Fatal().Msg("Both -id and -price are required")
	}

	publishCommand(ctx, &gateway.Command{
		Operation: gateway.OpInsert,
		OrderID:   *orderID,
		Symbol:    *symbol,
		Side:      *side,
		Quantity:  *quantity,
		Price:     *price,
		TIF:       *tif,
	})
}

func cancelOrder(ctx context.Context) {
	orderID := flag.String("id", "", "Order ID")
	symbol := flag.String("symbol", "AAPL", "Instrument symbol")
	flag.Parse()

	if *orderID == "" {
		log.Fatal().Msg("-id is required")
	}

	publishCommand(ctx, &gateway.Command{
		Operation: gateway.OpCancel,
		OrderID:   *orderID,
		Symbol:    *symbol,
	})
}

func modifyOrder(ctx context.Context) {
	orderID := flag.String("id", "", "Order ID")
	symbol := flag.String("symbol", "AAPL", "Instrument symbol")
	quantity := flag.String("qty", "", "New quantity")
	price := flag.String("price", "", "New price")
	flag.Parse()

	if *orderID == "" || *quantity == "" || *price == "" {
		log.Fatal().Msg("-id, -qty and -price are all required")
	}

	publishCommand(ctx, &gateway.Command{
		Operation: gateway.OpModify,
		OrderID:   *orderID,
		Symbol:    *symbol,
		Quantity:  *quantity,
		Price:     *price,
	})
}

func topOfBook(ctx context.Context) {
	symbol := flag.String("symbol", "AAPL", "Instrument symbol")
	flag.Parse()

	marketdata.SetDefaultRedisOptions(&marketdata.RedisOptions{Addr: *redisAddr})
	cache := marketdata.NewRedisCache(marketdata.GetRedisClient(), "limitbook", 0, nil)
	defer cache.Close()

	snapshot, err := cache.Get(ctx, *symbol)
	if err != nil {
		log.Fatal().Err(err).Str("symbol", *symbol).Msg("Failed to read snapshot")
	}

	cyan := color.New(color.FgCyan).SprintfFunc()
	fmt.Println(cyan("Top of book for %s (as of %s)", snapshot.Symbol, snapshot.UpdatedAt.Format(time.RFC3339)))

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SIDE\tPRICE\tQTY\tORDERS")
	if snapshot.Bid != nil {
		fmt.Fprintf(w, "BID\t%s\t%s\t%d\n", snapshot.Bid.Price, snapshot.Bid.Quantity, snapshot.Bid.Orders)
	} else {
		fmt.Fprintln(w, "BID\t-\t-\t-")
	}
	if snapshot.Ask != nil {
		fmt.Fprintf(w, "ASK\t%s\t%s\t%d\n", snapshot.Ask.Price, snapshot.Ask.Quantity, snapshot.Ask.Orders)
	} else {
		fmt.Fprintln(w, "ASK\t-\t-\t-")
	}
	w.Flush()
}

func tailReports() {
	flag.Parse()

	queue.SetBrokerList(*brokerAddr)
	queue.SetTopic(*reportsTopic)

	consumer, err := queue.NewQueueMessageConsumer()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create consumer")
	}
	defer consumer.Close()

	red := color.New(color.FgRed).SprintfFunc()
	green := color.New(color.FgGreen).SprintfFunc()

	fmt.Println("Tailing execution reports, Ctrl-C to stop")
	err = consumer.ConsumeDoneMessages(func(msg *messaging.DoneMessage) error {
		for _, trade := range msg.Trades {
			fmt.Println(green("TRADE %s/%s %s @ %s (match %d)",
				trade.BuyOrderID, trade.SellOrderID, trade.Quantity, trade.Price, trade.MatchSeq))
		}
		for _, canceled := range msg.Canceled {
			fmt.Println(red("CANCELED %s", canceled))
		}
		return nil
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Consumer failed")
	}
}
