// Command inspect prints what a badger store holds, without taking the relay's lock.
package main

import (
	"chat-relay/domain"
	"chat-relay/repositories"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	dbPath := flag.String("db", "./data/badger", "Path to badger DB")
	conversation := flag.String("conversation", "", "Only show this conversation")
	viewer := flag.String("viewer", string(domain.CategoryInternal), "lead or internal")
	contacts := flag.Bool("contacts", false, "List contacts instead of messages")
	flag.Parse()

	if !domain.Category(*viewer).IsValid() {
		return fmt.Errorf("viewer must be lead or internal, got %q", *viewer)
	}

	// Read-only, the lock guard is bypassed so a running relay keeps its store
	db, err := badger.Open(badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	log := logs.GetLoggerFromLevel(slog.LevelWarn)
	ctx := context.Background()
	if *contacts {
		list, err := repositories.NewContactRepository(db, log).ListContacts(ctx)
		if err != nil {
			return err
		}
		renderContacts(list)
		return nil
	}

	repository, err := repositories.NewMessageRepository(db, log)
	if err != nil {
		return err
	}
	defer repository.Close()
	var messages []domain.Message
	if *conversation == "" {
		messages, err = repository.List(ctx)
	} else {
		messages, err = repository.ListByConversation(ctx, domain.ConversationID(*conversation))
	}
	if err != nil {
		return err
	}
	renderMessages(domain.VisibleTo(domain.Category(*viewer), messages))
	return nil
}

func newTable(header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func renderMessages(messages []domain.Message) {
	table := newTable("ID", "Conversation", "Category", "Sender", "Role", "Created", "Body")
	table.AppendBulk(lo.Map(messages, func(m domain.Message, _ int) []string {
		return []string{
			strconv.FormatInt(m.ID, 10),
			m.ConversationID.String(),
			string(m.Category),
			lo.Ternary(m.SenderName != "", m.SenderName, m.SenderID),
			string(m.SenderRole),
			m.CreatedAt.Format("2006-01-02 15:04:05"),
			lo.Ellipsis(m.Body, 60),
		}
	}))
	table.Render()
}

func renderContacts(contacts []domain.Contact) {
	table := newTable("ID", "Category", "Name", "Owner", "Status", "Last activity")
	table.AppendBulk(lo.Map(contacts, func(c domain.Contact, _ int) []string {
		lastActivity := "-"
		if !c.LastActivityAt.IsZero() {
			lastActivity = c.LastActivityAt.Format("2006-01-02 15:04:05")
		}
		return []string{c.ID, string(c.Category), c.DisplayName, c.OwnerName, string(c.Status), lastActivity}
	}))
	table.Render()
}
