package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"github.com/dmitrijs2005/voxbot/internal/server/models"
	"github.com/dmitrijs2005/voxbot/internal/server/services"
)

const expiryLayout = "2006-01-02 15:04 UTC"

type Console struct {
	ledger *services.LedgerService
	admins *services.AdminService
	reaper *services.Reaper
	out    io.Writer
}

func New(ledger *services.LedgerService, admins *services.AdminService, reaper *services.Reaper, out io.Writer) *Console {
	if out == nil {
		out = os.Stdout
	}
	return &Console{ledger: ledger, admins: admins, reaper: reaper, out: out}
}

// Run starts the REPL on stdin. The prompt is only shown on a terminal so
// piped scripts produce clean output.
func (c *Console) Run(ctx context.Context) {
	var prompt func()
	if term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintln(c.out, "voxbot console (type 'help' for commands)")
		prompt = func() { fmt.Fprint(c.out, "voxbot> ") }
	}
	runREPL(ctx, c, prompt, bufio.NewScanner(os.Stdin))
}

func (c *Console) Users(ctx context.Context) error {
	return c.table(ctx, c.ledger.ListAccounts, false)
}

func (c *Console) Premium(ctx context.Context) error {
	return c.table(ctx, c.ledger.ListPremium, true)
}

type lister func(ctx context.Context, afterID int64, limit int) ([]*models.Account, error)

func (c *Console) table(ctx context.Context, list lister, premium bool) error {
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	if premium {
		fmt.Fprintln(tw, "ID\tCREDITS\tEXPIRES")
	} else {
		fmt.Fprintln(tw, "ID\tUSERNAME\tCREDITS\tPREMIUM")
	}

	var after int64
	rows := 0
	for {
		page, err := list(ctx, after, services.DefaultPageSize)
		if err != nil {
			return err
		}
		for _, a := range page {
			if premium {
				fmt.Fprintf(tw, "%d\t%d\t%s\n", a.UserID, a.Credits, expiry(a.ValidityExpireAt))
			} else {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%t\n", a.UserID, a.Username, a.Credits, a.IsPremium)
			}
		}
		rows += len(page)
		if len(page) < services.DefaultPageSize {
			break
		}
		after = page[len(page)-1].UserID
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(c.out, "%d accounts\n", rows)
	return err
}

func expiry(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format(expiryLayout)
}

func (c *Console) AddCredits(ctx context.Context, userID, amount int64) error {
	balance, err := c.ledger.AddCredits(ctx, userID, amount)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.out, "Added %d credits to %d, balance %d\n", amount, userID, balance)
	return err
}

func (c *Console) RemoveCredits(ctx context.Context, userID, amount int64) error {
	balance, err := c.ledger.RemoveCredits(ctx, userID, amount)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.out, "Removed %d credits from %d, balance %d\n", amount, userID, balance)
	return err
}

func (c *Console) SetValidity(ctx context.Context, userID, days int64) error {
	exp, err := c.ledger.SetValidity(ctx, userID, days)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.out, "Validity for %d until %s\n", userID, exp.UTC().Format(expiryLayout))
	return err
}

func (c *Console) RemoveValidity(ctx context.Context, userID int64) error {
	if err := c.ledger.RemoveValidity(ctx, userID); err != nil {
		return err
	}
	_, err := fmt.Fprintf(c.out, "Validity removed for %d\n", userID)
	return err
}

func (c *Console) AddAdmin(ctx context.Context, userID int64) error {
	if err := c.admins.Add(ctx, userID); err != nil {
		return err
	}
	_, err := fmt.Fprintf(c.out, "Added admin %d\n", userID)
	return err
}

func (c *Console) Sweep(ctx context.Context) error {
	res, err := c.reaper.Sweep(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.out, "Scanned %d, expired %d, failed %d\n", res.Scanned, res.Expired, res.Failed)
	return err
}
