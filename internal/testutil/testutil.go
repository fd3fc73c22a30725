// Package testutil holds helpers shared by tests across packages.
package testutil

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/mr-tron/base58"

	"github.com/vncsmyrnk/relayer/internal/core/domain"
)

// Address returns a valid, distinct wallet address for each seed.
func Address(seed int) string {
	var b [32]byte
	b[0] = byte(seed%250) + 1
	binary.BigEndian.PutUint64(b[24:], uint64(seed))
	return base58.Encode(b[:])
}

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// FakeCustody implements ports.WalletCustody in memory.
type FakeCustody struct {
	mu sync.Mutex

	addr    string
	network domain.Network
	balance uint64

	BalanceErr error
	SubmitErr  error
	StatusErr  error
	FundErr    error
	// TxStatus is reported for every submitted signature.
	TxStatus string
	TxErr    string

	submitted    []domain.Receipt
	fundRequests []uint64
}

func NewFakeCustody(network domain.Network, balance uint64) *FakeCustody {
	return &FakeCustody{
		addr:     Address(9999),
		network:  network,
		balance:  balance,
		TxStatus: domain.TxStatusConfirmed,
	}
}

func (f *FakeCustody) Address() string {
	return f.addr
}

func (f *FakeCustody) Network() domain.Network {
	return f.network
}

func (f *FakeCustody) SetBalance(lamports uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balance = lamports
}

func (f *FakeCustody) Balance(ctx context.Context) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.BalanceErr != nil {
		return 0, f.BalanceErr
	}
	return f.balance, nil
}

func (f *FakeCustody) RequestFunds(ctx context.Context, lamports uint64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fundRequests = append(f.fundRequests, lamports)
	if !f.network.SupportsAirdrop() {
		return "", domain.ErrReplenishUnavailable
	}
	if f.FundErr != nil {
		return "", f.FundErr
	}
	f.balance += lamports
	return fmt.Sprintf("airdrop-%d", len(f.fundRequests)), nil
}

func (f *FakeCustody) Submit(ctx context.Context, receipt domain.Receipt) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SubmitErr != nil {
		return "", f.SubmitErr
	}
	f.submitted = append(f.submitted, receipt)
	return fmt.Sprintf("sig-%d", len(f.submitted)), nil
}

func (f *FakeCustody) Status(ctx context.Context, signature string) (*domain.TxStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.StatusErr != nil {
		return nil, f.StatusErr
	}
	return &domain.TxStatus{
		Signature: signature,
		Status:    f.TxStatus,
		Err:       f.TxErr,
		Slot:      42,
	}, nil
}

func (f *FakeCustody) Submitted() []domain.Receipt {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Receipt(nil), f.submitted...)
}

func (f *FakeCustody) FundRequests() []uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint64(nil), f.fundRequests...)
}
