package main

import (
	"context"
	"fmt"

	"github.com/nikolaydubina/fpdecimal"

	"github.com/erain9/limitbook/pkg/core"
)

func main() {
	ctx := context.Background()
	book := core.NewOrderBook("AAPL")

	// Rest a sell limit order
	sellOrder, err := core.NewOrder("sell-1", "AAPL", core.Sell,
		fpdecimal.FromFloat(10.0), fpdecimal.FromFloat(10.0), core.GTC)
	if err != nil {
		panic(err)
	}
	if _, err := book.Insert(ctx, sellOrder); err != nil {
		panic(err)
	}
	fmt.Printf("Resting sell order: %s\n", sellOrder.ID())

	// A crossing buy executes immediately against it
	buyOrder, err := core.NewOrder("buy-1", "AAPL", core.Buy,
		fpdecimal.FromFloat(5.0), fpdecimal.FromFloat(10.0), core.GTC)
	if err != nil {
		panic(err)
	}
	done, err := book.Insert(ctx, buyOrder)
	if err != nil {
		panic(err)
	}

	for _, trade := range done.Trades {
		fmt.Printf("Trade executed: buy=%s sell=%s price=%s qty=%s\n",
			trade.BuyOrderID, trade.SellOrderID, trade.Price, trade.Quantity)
	}
	fmt.Printf("Buy order processed quantity: %s\n", done.Processed.String())

	if ask, ok := book.BestAsk(); ok {
		fmt.Printf("Best ask after match: %s x %s\n", ask.Price.String(), ask.Quantity.String())
	}

	fmt.Println("\nBook state:")
	fmt.Println(book)
}
