package sheets

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/polatjonbaxtiyorov/mytushlikbot/internal/config"
	"github.com/polatjonbaxtiyorov/mytushlikbot/internal/domain/models"
)

// Ledger abstracts the external spreadsheet holding the authoritative
// per-user price and balance. Every failure — transport, missing row,
// unparseable cell — surfaces as models.ErrLedgerUnavailable; callers
// never receive a zero default in place of a real value.
type Ledger interface {
	GetPrice(ctx context.Context, telegramID int64) (float64, error)
	GetBalance(ctx context.Context, telegramID int64) (float64, error)
	RecordDebtDelta(ctx context.Context, telegramID int64, amount float64) error
	ClearDebt(ctx context.Context, telegramID int64) error
	ListBalances(ctx context.Context) (map[int64]float64, error)
	ListPrices(ctx context.Context) (map[int64]float64, error)
	ReadKassa(ctx context.Context) (float64, error)
}

// Roster worksheet header names.
const (
	headerTelegramID = "telegram_id"
	headerBalance    = "balance"
	headerPrice      = "daily_price"
)

// kassaCell is the fixed cash-box cell on the roster worksheet.
const kassaCell = "D2"

// GoogleSheetLedger implements Ledger using the official Google Sheets API.
type GoogleSheetLedger struct {
	service       *sheetsapi.Service
	spreadsheetID string
	rosterSheet   string
	attendSheet   string
	location      *time.Location
	logger        *zap.Logger
	now           func() time.Time
}

// NewGoogleSheetLedger builds a Google Sheets backed ledger instance.
func NewGoogleSheetLedger(ctx context.Context, cfg config.SheetsConfig, loc *time.Location, logger *zap.Logger) (*GoogleSheetLedger, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := sheetsapi.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsPath), option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &GoogleSheetLedger{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		rosterSheet:   cfg.RosterSheet,
		attendSheet:   cfg.AttendanceSheet,
		location:      loc,
		logger:        logger,
		now:           time.Now,
	}, nil
}

// GetPrice looks up one user's live daily price from the roster sheet.
func (l *GoogleSheetLedger) GetPrice(ctx context.Context, telegramID int64) (float64, error) {
	return l.rosterValue(ctx, telegramID, headerPrice)
}

// GetBalance looks up one user's live balance from the roster sheet.
func (l *GoogleSheetLedger) GetBalance(ctx context.Context, telegramID int64) (float64, error) {
	return l.rosterValue(ctx, telegramID, headerBalance)
}

// RecordDebtDelta writes the billed amount into the user's cell for
// today's column on the attendance worksheet, adding the column when
// the day has not been opened yet.
func (l *GoogleSheetLedger) RecordDebtDelta(ctx context.Context, telegramID int64, amount float64) error {
	rows, err := l.readRange(ctx, l.attendSheet+"!A:ZZ")
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return ledgerErr("attendance sheet is empty", nil)
	}

	headers := rows[0]
	idCol := columnIndex(headers, headerTelegramID)
	if idCol < 0 {
		return ledgerErr(fmt.Sprintf("attendance sheet has no %s column", headerTelegramID), nil)
	}

	rowNum := 0
	for i := 1; i < len(rows); i++ {
		if idCol < len(rows[i]) && cellString(rows[i][idCol]) == strconv.FormatInt(telegramID, 10) {
			rowNum = i + 1 // 1-based sheet row
			break
		}
	}
	if rowNum == 0 {
		return ledgerErr(fmt.Sprintf("user %d not found on attendance sheet", telegramID), nil)
	}

	today := l.dayColumnLabel()
	colNum := columnIndex(headers, today) + 1
	if colNum == 0 {
		colNum = len(headers) + 1
		if err := l.writeCell(ctx, l.attendSheet, 1, colNum, today); err != nil {
			return err
		}
	}

	if err := l.writeCell(ctx, l.attendSheet, rowNum, colNum, amount); err != nil {
		return err
	}

	l.logger.Debug("debt cell updated",
		zap.Int64("telegram_id", telegramID),
		zap.Float64("amount", amount),
		zap.String("day", today))
	return nil
}

// ClearDebt zeroes the user's cell for today on the attendance sheet.
func (l *GoogleSheetLedger) ClearDebt(ctx context.Context, telegramID int64) error {
	return l.RecordDebtDelta(ctx, telegramID, 0)
}

// ListBalances reads every roster row's balance, keyed by telegram id.
// Rows with a missing id are skipped; rows with an unparseable balance
// fail the whole scan.
func (l *GoogleSheetLedger) ListBalances(ctx context.Context) (map[int64]float64, error) {
	return l.rosterColumn(ctx, headerBalance)
}

// ListPrices reads every roster row's daily price, keyed by telegram id.
func (l *GoogleSheetLedger) ListPrices(ctx context.Context) (map[int64]float64, error) {
	return l.rosterColumn(ctx, headerPrice)
}

// ReadKassa reads the cash-box amount from its fixed roster cell.
func (l *GoogleSheetLedger) ReadKassa(ctx context.Context) (float64, error) {
	rows, err := l.readRange(ctx, l.rosterSheet+"!"+kassaCell)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, ledgerErr("kassa cell is empty", nil)
	}
	value, err := parseAmount(rows[0][0])
	if err != nil {
		return 0, ledgerErr("parse kassa cell", err)
	}
	return value, nil
}

func (l *GoogleSheetLedger) rosterValue(ctx context.Context, telegramID int64, header string) (float64, error) {
	rows, err := l.readRange(ctx, l.rosterSheet+"!A:Z")
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, ledgerErr("roster sheet is empty", nil)
	}

	idCol := columnIndex(rows[0], headerTelegramID)
	valCol := columnIndex(rows[0], header)
	if idCol < 0 || valCol < 0 {
		return 0, ledgerErr(fmt.Sprintf("roster sheet is missing %s or %s column", headerTelegramID, header), nil)
	}

	want := strconv.FormatInt(telegramID, 10)
	for _, row := range rows[1:] {
		if idCol >= len(row) || cellString(row[idCol]) != want {
			continue
		}
		if valCol >= len(row) {
			return 0, ledgerErr(fmt.Sprintf("no %s cell for user %d", header, telegramID), nil)
		}
		value, err := parseAmount(row[valCol])
		if err != nil {
			return 0, ledgerErr(fmt.Sprintf("parse %s for user %d", header, telegramID), err)
		}
		return value, nil
	}

	return 0, ledgerErr(fmt.Sprintf("user %d not found on roster sheet", telegramID), nil)
}

func (l *GoogleSheetLedger) rosterColumn(ctx context.Context, header string) (map[int64]float64, error) {
	rows, err := l.readRange(ctx, l.rosterSheet+"!A:Z")
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ledgerErr("roster sheet is empty", nil)
	}

	idCol := columnIndex(rows[0], headerTelegramID)
	valCol := columnIndex(rows[0], header)
	if idCol < 0 || valCol < 0 {
		return nil, ledgerErr(fmt.Sprintf("roster sheet is missing %s or %s column", headerTelegramID, header), nil)
	}

	out := make(map[int64]float64, len(rows)-1)
	for _, row := range rows[1:] {
		if idCol >= len(row) {
			continue
		}
		id, err := strconv.ParseInt(cellString(row[idCol]), 10, 64)
		if err != nil {
			continue // blank or annotation rows
		}
		if valCol >= len(row) {
			return nil, ledgerErr(fmt.Sprintf("no %s cell for user %d", header, id), nil)
		}
		value, err := parseAmount(row[valCol])
		if err != nil {
			return nil, ledgerErr(fmt.Sprintf("parse %s for user %d", header, id), err)
		}
		out[id] = value
	}
	return out, nil
}

func (l *GoogleSheetLedger) readRange(ctx context.Context, sheetRange string) ([][]interface{}, error) {
	resp, err := l.service.Spreadsheets.Values.Get(l.spreadsheetID, sheetRange).Context(ctx).Do()
	if err != nil {
		return nil, ledgerErr(fmt.Sprintf("read range %s", sheetRange), err)
	}
	return resp.Values, nil
}

func (l *GoogleSheetLedger) writeCell(ctx context.Context, sheet string, row, col int, value interface{}) error {
	cell := fmt.Sprintf("%s!%s%d", sheet, columnLetter(col), row)
	payload := &sheetsapi.ValueRange{Values: [][]interface{}{{value}}}

	_, err := l.service.Spreadsheets.Values.Update(l.spreadsheetID, cell, payload).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return ledgerErr(fmt.Sprintf("update cell %s", cell), err)
	}
	return nil
}

// dayColumnLabel renders today's attendance column header, e.g. "6/2".
func (l *GoogleSheetLedger) dayColumnLabel() string {
	now := l.now().In(l.location)
	return fmt.Sprintf("%d/%d", int(now.Month()), now.Day())
}

func ledgerErr(op string, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", op, models.ErrLedgerUnavailable)
	}
	return fmt.Errorf("%s: %w: %w", op, models.ErrLedgerUnavailable, err)
}

func columnIndex(headers []interface{}, name string) int {
	for i, h := range headers {
		if strings.EqualFold(cellString(h), name) {
			return i
		}
	}
	return -1
}

func cellString(v interface{}) string {
	return strings.TrimSpace(fmt.Sprint(v))
}

// parseAmount reads a numeric spreadsheet cell, tolerating the comma
// grouping the sheet uses for display.
func parseAmount(v interface{}) (float64, error) {
	str := strings.ReplaceAll(cellString(v), ",", "")
	if str == "" {
		return 0, fmt.Errorf("empty numeric value")
	}
	return strconv.ParseFloat(str, 64)
}

// columnLetter converts a 1-based column number to A1 notation.
func columnLetter(n int) string {
	letters := ""
	for n > 0 {
		n--
		letters = string(rune('A'+n%26)) + letters
		n /= 26
	}
	return letters
}
