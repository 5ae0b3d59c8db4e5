package walletloader

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"collateral_monitor/internal/app/port"
	"collateral_monitor/internal/domain/entity"
	"collateral_monitor/internal/pkg/utils"
)

// Entry is one wallet line of a seed file.
type Entry struct {
	Address string
	Name    string
	Tag     string
}

// WalletFileLoader reads customer wallets from a text file, one
// "address[,name[,tag]]" entry per line. Blank lines and lines starting with
// "#" are ignored.
type WalletFileLoader struct {
	filePath string
	logger   port.Logger
}

// NewWalletFileLoader creates a new WalletFileLoader.
func NewWalletFileLoader(filePath string, l port.Logger) *WalletFileLoader {
	return &WalletFileLoader{
		filePath: filePath,
		logger:   l,
	}
}

// Load parses the wallet file. Malformed addresses are skipped with a warning.
func (l *WalletFileLoader) Load() ([]Entry, error) {
	file, err := os.Open(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open wallet file %s: %w", l.filePath, err)
	}
	defer file.Close()

	var entries []Entry
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, ",", 3)
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if !utils.IsValidWalletAddress(parts[0]) {
			l.logger.Warn("Skipping invalid wallet address format", "file", l.filePath, "line_number", lineNum, "address", parts[0])
			continue
		}

		entry := Entry{Address: parts[0], Name: parts[0]}
		if len(parts) > 1 && parts[1] != "" {
			entry.Name = parts[1]
		}
		if len(parts) > 2 {
			entry.Tag = parts[2]
		}
		entries = append(entries, entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning wallet file %s: %w", l.filePath, err)
	}

	l.logger.Info("Wallets loaded successfully from file", "count", len(entries), "path", l.filePath)
	return entries, nil
}

// Seed registers every wallet of the file that is not yet a customer and
// returns how many were created.
func (l *WalletFileLoader) Seed(ctx context.Context, svc port.CustomerService) (int, error) {
	entries, err := l.Load()
	if err != nil {
		return 0, err
	}

	created := 0
	for _, e := range entries {
		_, err := svc.CreateCustomer(ctx, entity.CreateCustomerRequest{
			Name:         e.Name,
			ERC20Address: e.Address,
			Tag:          e.Tag,
		})
		switch {
		case err == nil:
			created++
		case errors.Is(err, entity.ErrCustomerExists):
			l.logger.Debug("Seed wallet already registered", "address", e.Address)
		default:
			return created, fmt.Errorf("seed wallet %s: %w", e.Address, err)
		}
	}
	l.logger.Info("Customer seeding finished", "created", created, "total", len(entries))
	return created, nil
}
