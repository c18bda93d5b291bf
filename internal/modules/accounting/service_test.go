package accounting

import (
	"sync"
	"testing"

	"github.com/aristath/tradebook/internal/domain"
	"github.com/aristath/tradebook/internal/events"
	"github.com/aristath/tradebook/internal/locking"
	"github.com/aristath/tradebook/internal/modules/ledger"
	"github.com/aristath/tradebook/internal/modules/quotes"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testBook struct {
	service *Service
	quotes  *quotes.Repository
	ledger  *ledger.Repository
}

func setupService(t *testing.T) *testBook {
	t.Helper()

	db := setupTestDB(t)
	log := zerolog.Nop()

	quoteRepo := quotes.NewRepository(db, log)
	ledgerRepo := ledger.NewRepository(db, log)
	positionRepo := NewPositionRepository(db, log)
	snapshotRepo := NewSnapshotRepository(db, log)

	svc := NewService(
		quoteRepo, ledgerRepo, positionRepo, snapshotRepo,
		locking.NewManager(), events.NewManager(log), log,
	)
	return &testBook{service: svc, quotes: quoteRepo, ledger: ledgerRepo}
}

func (b *testBook) addStock(t *testing.T, name string, price int64) quotes.Stock {
	t.Helper()
	stock, _, err := b.quotes.Upsert(name, decimal.NewFromInt(price))
	require.NoError(t, err)
	return stock
}

func TestAddTrade_OpensAtCurrentQuote(t *testing.T) {
	book := setupService(t)
	stock := book.addStock(t, "AAPL", 150)

	pos, err := book.service.AddTrade(stock.ID, 10, ledger.SideBuy)
	require.NoError(t, err)
	assert.Equal(t, stock.ID, pos.StockID)
	assert.Equal(t, int64(10), pos.Quantity)
	assert.True(t, pos.AvgCost.Equal(decimal.NewFromInt(150)))

	// Exactly one ledger entry, at the quoted rate
	entries, err := book.ledger.FindByStock(stock.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.SideBuy, entries[0].Side)
	assert.True(t, entries[0].Rate.Equal(decimal.NewFromInt(150)))
}

func TestAddTrade_UnknownStock(t *testing.T) {
	book := setupService(t)

	_, err := book.service.AddTrade(42, 10, ledger.SideBuy)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	count, err := book.ledger.Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestAddTrade_SecondOpenConflicts(t *testing.T) {
	book := setupService(t)
	stock := book.addStock(t, "AAPL", 150)

	first, err := book.service.AddTrade(stock.ID, 10, ledger.SideBuy)
	require.NoError(t, err)

	_, err = book.service.AddTrade(stock.ID, 5, ledger.SideBuy)
	assert.ErrorIs(t, err, domain.ErrConflict)

	// The open position is untouched and no second entry was recorded
	got, err := book.service.positions.Get(first.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), got.Quantity)

	count, err := book.ledger.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestModifyTrade_BuyRecomputesAverage(t *testing.T) {
	book := setupService(t)
	stock := book.addStock(t, "AAPL", 100)

	pos, err := book.service.AddTrade(stock.ID, 10, ledger.SideBuy)
	require.NoError(t, err)

	// Quote moves, then 10 more are bought at the new price
	_, _, err = book.quotes.Upsert("AAPL", decimal.NewFromInt(200))
	require.NoError(t, err)

	updated, err := book.service.ModifyTrade(pos.ID, 10, ledger.SideBuy)
	require.NoError(t, err)
	assert.Equal(t, int64(20), updated.Quantity)
	assert.True(t, updated.AvgCost.Equal(decimal.NewFromInt(150)),
		"avg cost was %s", updated.AvgCost)
}

func TestModifyTrade_OverSellKeepsPositionButRecordsAttempt(t *testing.T) {
	book := setupService(t)
	stock := book.addStock(t, "AAPL", 100)

	pos, err := book.service.AddTrade(stock.ID, 10, ledger.SideBuy)
	require.NoError(t, err)

	_, err = book.service.ModifyTrade(pos.ID, 11, ledger.SideSell)
	assert.ErrorIs(t, err, domain.ErrInsufficientPosition)

	// Position unchanged
	got, err := book.service.positions.Get(pos.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), got.Quantity)

	// The rejected sell is still on the ledger
	entries, err := book.ledger.FindByStock(stock.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ledger.SideSell, entries[1].Side)
}

func TestDeleteTrade_FullSellRemovesPosition(t *testing.T) {
	book := setupService(t)
	stock := book.addStock(t, "AAPL", 100)

	pos, err := book.service.AddTrade(stock.ID, 10, ledger.SideBuy)
	require.NoError(t, err)

	_, err = book.service.DeleteTrade(pos.ID, 10)
	require.NoError(t, err)

	_, err = book.service.positions.Get(pos.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Selling out of a closed position fails
	_, err = book.service.DeleteTrade(pos.ID, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHoldings_AverageOfBuyRates(t *testing.T) {
	book := setupService(t)
	stock := book.addStock(t, "AAPL", 100)

	pos, err := book.service.AddTrade(stock.ID, 10, ledger.SideBuy)
	require.NoError(t, err)

	_, _, err = book.quotes.Upsert("AAPL", decimal.NewFromInt(300))
	require.NoError(t, err)
	_, err = book.service.ModifyTrade(pos.ID, 5, ledger.SideBuy)
	require.NoError(t, err)

	holdings, err := book.service.Holdings()
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.Equal(t, "AAPL", holdings[0].Name)
	assert.Equal(t, int64(15), holdings[0].Quantity)
	// Plain mean of the BUY rates 100 and 300, not volume-weighted
	require.NotNil(t, holdings[0].AvgBuy)
	assert.InDelta(t, 200.0, *holdings[0].AvgBuy, 1e-9)
}

func TestHoldings_NilAvgBuyWithoutBuyEntries(t *testing.T) {
	book := setupService(t)
	stock := book.addStock(t, "LEGACY", 50)

	// Position written directly, bypassing the trade path
	_, err := book.service.positions.Open(stock.ID, 3, decimal.NewFromInt(50))
	require.NoError(t, err)

	holdings, err := book.service.Holdings()
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.Nil(t, holdings[0].AvgBuy)
}

func TestPortfolioHistory_GroupsByStockAndSkipsClosed(t *testing.T) {
	book := setupService(t)
	a := book.addStock(t, "AAPL", 100)
	b := book.addStock(t, "MSFT", 200)

	posA, err := book.service.AddTrade(a.ID, 10, ledger.SideBuy)
	require.NoError(t, err)
	_, err = book.service.AddTrade(b.ID, 5, ledger.SideBuy)
	require.NoError(t, err)
	_, err = book.service.ModifyTrade(posA.ID, 2, ledger.SideSell)
	require.NoError(t, err)

	history, err := book.service.PortfolioHistory()
	require.NoError(t, err)
	require.Len(t, history, 3)
	// AAPL's entries come first even though MSFT traded in between
	assert.Equal(t, "AAPL", history[0].Name)
	assert.Equal(t, "AAPL", history[1].Name)
	assert.Equal(t, "SELL", history[1].Side)
	assert.Equal(t, "MSFT", history[2].Name)

	// Closing AAPL removes all its entries from the report
	_, err = book.service.DeleteTrade(posA.ID, 8)
	require.NoError(t, err)

	history, err = book.service.PortfolioHistory()
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "MSFT", history[0].Name)
}

func TestCumulativeReturn_MarksToCurrentQuote(t *testing.T) {
	book := setupService(t)
	a := book.addStock(t, "AAPL", 10)
	b := book.addStock(t, "MSFT", 10)

	_, err := book.service.AddTrade(a.ID, 5, ledger.SideBuy)
	require.NoError(t, err)
	_, err = book.service.AddTrade(b.ID, 3, ledger.SideBuy)
	require.NoError(t, err)

	// Quotes move after the trades; valuation follows the live quote
	_, _, err = book.quotes.Upsert("AAPL", decimal.NewFromInt(50))
	require.NoError(t, err)
	_, _, err = book.quotes.Upsert("MSFT", decimal.NewFromInt(20))
	require.NoError(t, err)

	total, err := book.service.CumulativeReturn()
	require.NoError(t, err)
	// 5*50 + 3*20
	assert.True(t, total.Equal(decimal.NewFromInt(310)), "total was %s", total)
}

func TestCumulativeReturn_EmptyBookIsZero(t *testing.T) {
	book := setupService(t)

	total, err := book.service.CumulativeReturn()
	require.NoError(t, err)
	assert.True(t, total.IsZero())
}

func TestTakeSnapshot_RecordsAndOverwritesSameDay(t *testing.T) {
	book := setupService(t)
	stock := book.addStock(t, "AAPL", 100)

	_, err := book.service.AddTrade(stock.ID, 2, ledger.SideBuy)
	require.NoError(t, err)

	snap, err := book.service.TakeSnapshot()
	require.NoError(t, err)
	assert.Equal(t, 1, snap.PositionCount)
	assert.True(t, snap.TotalValue.Equal(decimal.NewFromInt(200)))

	// Same-day re-run overwrites rather than appending
	_, _, err = book.quotes.Upsert("AAPL", decimal.NewFromInt(150))
	require.NoError(t, err)
	_, err = book.service.TakeSnapshot()
	require.NoError(t, err)

	history, err := book.service.snapshots.GetHistory(10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].TotalValue.Equal(decimal.NewFromInt(300)))
}

func TestConcurrentModify_NoLostUpdates(t *testing.T) {
	book := setupService(t)
	stock := book.addStock(t, "AAPL", 10)

	pos, err := book.service.AddTrade(stock.ID, 1000, ledger.SideBuy)
	require.NoError(t, err)

	const workers = 20
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := book.service.ModifyTrade(pos.ID, 10, ledger.SideSell)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := book.service.positions.Get(pos.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(800), got.Quantity)

	// One opening entry plus one entry per concurrent sell
	count, err := book.ledger.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(workers+1), count)
}
