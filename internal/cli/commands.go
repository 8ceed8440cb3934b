package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/ovaphlow/pitchfork/service-finance-go/pkg/finance"
	"github.com/ovaphlow/pitchfork/service-finance-go/pkg/guard"
)

// leaf gives commands the Execute method go-flags looks for. Run installs a
// handler that dispatches to run instead.
type leaf struct{}

func (leaf) Execute([]string) error {
	return errors.New("command must be run through cli.Run")
}

type LoginCmd struct {
	leaf
	Password string `short:"p" long:"password" env:"FINANCE_PASSWORD" description:"account password" required:"true"`
	Args     struct {
		Email string `positional-arg-name:"email" required:"true"`
	} `positional-args:"yes"`
}

func (c *LoginCmd) run(ctx context.Context, a *App, _ []string) error {
	if err := a.enter(ctx, guard.ViewLogin); err != nil {
		return err
	}
	if _, err := a.svc.Auth.Login(ctx, c.Args.Email, c.Password); err != nil {
		return err
	}
	view, err := a.guard.Navigate(ctx, guard.ViewLogin)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "logged in as %s\n-> %s\n", c.Args.Email, view)
	return nil
}

type RegisterCmd struct {
	leaf
	Name     string `short:"n" long:"name" description:"display name" required:"true"`
	Password string `short:"p" long:"password" env:"FINANCE_PASSWORD" description:"account password" required:"true"`
	Args     struct {
		Email string `positional-arg-name:"email" required:"true"`
	} `positional-args:"yes"`
}

func (c *RegisterCmd) run(ctx context.Context, a *App, _ []string) error {
	if err := a.enter(ctx, guard.ViewRegister); err != nil {
		return err
	}
	u, err := a.svc.Auth.Register(ctx, finance.RegisterInput{Name: c.Name, Email: c.Args.Email, Password: c.Password})
	if err != nil {
		return err
	}
	if a.JSON {
		return a.printJSON(u)
	}
	fmt.Fprintf(a.out, "registered %s (id %d)\n", u.Email, u.ID)
	return nil
}

type LogoutCmd struct{ leaf }

func (c *LogoutCmd) run(ctx context.Context, a *App, _ []string) error {
	if err := a.svc.Auth.Logout(ctx); err != nil {
		return err
	}
	view, err := a.guard.Navigate(ctx, guard.ViewLogout)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "logged out\n-> %s\n", view)
	return nil
}

type WhoamiCmd struct{ leaf }

func (c *WhoamiCmd) run(ctx context.Context, a *App, _ []string) error {
	if err := a.enter(ctx, guard.ViewHome); err != nil {
		return err
	}
	u, err := a.svc.Auth.Me(ctx)
	if err != nil {
		return err
	}
	if a.JSON {
		return a.printJSON(u)
	}
	fmt.Fprintf(a.out, "%s <%s>\n", u.Name, u.Email)
	return nil
}

type RefreshCmd struct{ leaf }

func (c *RefreshCmd) run(ctx context.Context, a *App, _ []string) error {
	if err := a.enter(ctx, guard.ViewHome); err != nil {
		return err
	}
	if _, err := a.svc.Auth.Refresh(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "token refreshed")
	return nil
}

type NavCmd struct {
	leaf
	Args struct {
		View string `positional-arg-name:"view" required:"true"`
	} `positional-args:"yes"`
}

func (c *NavCmd) run(ctx context.Context, a *App, _ []string) error {
	view, err := a.guard.Navigate(ctx, c.Args.View)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, view)
	return nil
}

type CategoriesCmd struct {
	List   CategoryListCmd   `command:"list" alias:"ls" description:"list categories"`
	Add    CategoryAddCmd    `command:"add" description:"create a category"`
	Rename CategoryRenameCmd `command:"rename" description:"rename a category"`
	Remove CategoryRemoveCmd `command:"rm" description:"delete a category"`
}

type CategoryListCmd struct{ leaf }

func (c *CategoryListCmd) run(ctx context.Context, a *App, _ []string) error {
	if err := a.enter(ctx, guard.ViewCategories); err != nil {
		return err
	}
	cats, err := a.svc.Categories.List(ctx)
	if err != nil {
		return err
	}
	if a.JSON {
		return a.printJSON(cats)
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME")
	for _, cat := range cats {
		fmt.Fprintf(tw, "%d\t%s\n", cat.ID, cat.Name)
	}
	return tw.Flush()
}

type CategoryAddCmd struct {
	leaf
	Args struct {
		Name string `positional-arg-name:"name" required:"true"`
	} `positional-args:"yes"`
}

func (c *CategoryAddCmd) run(ctx context.Context, a *App, _ []string) error {
	if err := a.enter(ctx, guard.ViewCategories); err != nil {
		return err
	}
	cat, err := a.svc.Categories.Create(ctx, c.Args.Name)
	if err != nil {
		return err
	}
	if a.JSON {
		return a.printJSON(cat)
	}
	fmt.Fprintf(a.out, "created category %d %s\n", cat.ID, cat.Name)
	return nil
}

type CategoryRenameCmd struct {
	leaf
	Args struct {
		ID   int64  `positional-arg-name:"id" required:"true"`
		Name string `positional-arg-name:"name" required:"true"`
	} `positional-args:"yes"`
}

func (c *CategoryRenameCmd) run(ctx context.Context, a *App, _ []string) error {
	if err := a.enter(ctx, guard.ViewCategories); err != nil {
		return err
	}
	cat, err := a.svc.Categories.Update(ctx, c.Args.ID, c.Args.Name)
	if err != nil {
		return err
	}
	if a.JSON {
		return a.printJSON(cat)
	}
	fmt.Fprintf(a.out, "renamed category %d to %s\n", cat.ID, cat.Name)
	return nil
}

type CategoryRemoveCmd struct {
	leaf
	Args struct {
		ID int64 `positional-arg-name:"id" required:"true"`
	} `positional-args:"yes"`
}

func (c *CategoryRemoveCmd) run(ctx context.Context, a *App, _ []string) error {
	if err := a.enter(ctx, guard.ViewCategories); err != nil {
		return err
	}
	if err := a.svc.Categories.Delete(ctx, c.Args.ID); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "deleted category %d\n", c.Args.ID)
	return nil
}

type ExpensesCmd struct {
	List   ExpenseListCmd   `command:"list" alias:"ls" description:"list expenses"`
	Add    ExpenseAddCmd    `command:"add" description:"create an expense"`
	Rename ExpenseRenameCmd `command:"rename" description:"rename or move an expense"`
	Remove ExpenseRemoveCmd `command:"rm" description:"delete an expense"`
}

type ExpenseListCmd struct {
	leaf
	Category int64 `short:"c" long:"category" description:"only expenses of this category"`
}

func (c *ExpenseListCmd) run(ctx context.Context, a *App, _ []string) error {
	if err := a.enter(ctx, guard.ViewExpenses); err != nil {
		return err
	}
	exps, err := a.svc.Expenses.List(ctx, c.Category)
	if err != nil {
		return err
	}
	if a.JSON {
		return a.printJSON(exps)
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCATEGORY\tNAME")
	for _, e := range exps {
		fmt.Fprintf(tw, "%d\t%d\t%s\n", e.ID, e.CategoryID, e.Name)
	}
	return tw.Flush()
}

type ExpenseAddCmd struct {
	leaf
	Category int64 `short:"c" long:"category" description:"owning category" required:"true"`
	Args     struct {
		Name string `positional-arg-name:"name" required:"true"`
	} `positional-args:"yes"`
}

func (c *ExpenseAddCmd) run(ctx context.Context, a *App, _ []string) error {
	if err := a.enter(ctx, guard.ViewExpenses); err != nil {
		return err
	}
	e, err := a.svc.Expenses.Create(ctx, c.Args.Name, c.Category)
	if err != nil {
		return err
	}
	if a.JSON {
		return a.printJSON(e)
	}
	fmt.Fprintf(a.out, "created expense %d %s\n", e.ID, e.Name)
	return nil
}

type ExpenseRenameCmd struct {
	leaf
	Category int64 `short:"c" long:"category" description:"move to this category"`
	Args     struct {
		ID   int64  `positional-arg-name:"id" required:"true"`
		Name string `positional-arg-name:"name" required:"true"`
	} `positional-args:"yes"`
}

func (c *ExpenseRenameCmd) run(ctx context.Context, a *App, _ []string) error {
	if err := a.enter(ctx, guard.ViewExpenses); err != nil {
		return err
	}
	category := c.Category
	if category == 0 {
		cur, err := a.svc.Expenses.Get(ctx, c.Args.ID)
		if err != nil {
			return err
		}
		category = cur.CategoryID
	}
	e, err := a.svc.Expenses.Update(ctx, c.Args.ID, c.Args.Name, category)
	if err != nil {
		return err
	}
	if a.JSON {
		return a.printJSON(e)
	}
	fmt.Fprintf(a.out, "updated expense %d %s\n", e.ID, e.Name)
	return nil
}

type ExpenseRemoveCmd struct {
	leaf
	Args struct {
		ID int64 `positional-arg-name:"id" required:"true"`
	} `positional-args:"yes"`
}

func (c *ExpenseRemoveCmd) run(ctx context.Context, a *App, _ []string) error {
	if err := a.enter(ctx, guard.ViewExpenses); err != nil {
		return err
	}
	if err := a.svc.Expenses.Delete(ctx, c.Args.ID); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "deleted expense %d\n", c.Args.ID)
	return nil
}

type TransactionsCmd struct {
	List   TransactionListCmd   `command:"list" alias:"ls" description:"list transactions, newest first"`
	Add    TransactionAddCmd    `command:"add" description:"record a transaction"`
	Update TransactionUpdateCmd `command:"update" description:"change a transaction"`
	Remove TransactionRemoveCmd `command:"rm" description:"delete a transaction"`
}

type TransactionListCmd struct {
	leaf
	Expense  int64  `short:"e" long:"expense" description:"only this expense"`
	Category int64  `short:"c" long:"category" description:"only expenses of this category"`
	From     string `long:"from" description:"first day, YYYY-MM-DD"`
	To       string `long:"to" description:"last day, YYYY-MM-DD"`
	Skip     int    `long:"skip" description:"rows to skip"`
	Limit    int    `long:"limit" description:"max rows"`
}

func (c *TransactionListCmd) run(ctx context.Context, a *App, _ []string) error {
	if err := a.enter(ctx, guard.ViewTransactions); err != nil {
		return err
	}
	txs, err := a.svc.Transactions.List(ctx, finance.TransactionFilter{
		ExpenseID:  c.Expense,
		CategoryID: c.Category,
		StartDate:  c.From,
		EndDate:    c.To,
		Skip:       c.Skip,
		Limit:      c.Limit,
	})
	if err != nil {
		return err
	}
	if a.JSON {
		return a.printJSON(txs)
	}
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tEXPENSE\tAMOUNT\tDESCRIPTION")
	for _, t := range txs {
		desc := ""
		if t.Description != nil {
			desc = *t.Description
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n", t.ID, t.TransactionDate, t.ExpenseID, t.Amount, desc)
	}
	return tw.Flush()
}

type transactionFields struct {
	Expense     int64  `short:"e" long:"expense" description:"expense id" required:"true"`
	Date        string `short:"d" long:"date" description:"transaction day, YYYY-MM-DD" required:"true"`
	Description string `long:"description" description:"free text note"`
	Args        struct {
		Amount string `positional-arg-name:"amount" required:"true"`
	} `positional-args:"yes"`
}

func (f *transactionFields) input() finance.TransactionInput {
	in := finance.TransactionInput{ExpenseID: f.Expense, Amount: f.Args.Amount, TransactionDate: f.Date}
	if f.Description != "" {
		d := f.Description
		in.Description = &d
	}
	return in
}

type TransactionAddCmd struct {
	leaf
	transactionFields
}

func (c *TransactionAddCmd) run(ctx context.Context, a *App, _ []string) error {
	if err := a.enter(ctx, guard.ViewTransactions); err != nil {
		return err
	}
	t, err := a.svc.Transactions.Create(ctx, c.input())
	if err != nil {
		return err
	}
	if a.JSON {
		return a.printJSON(t)
	}
	fmt.Fprintf(a.out, "recorded transaction %d %s on %s\n", t.ID, t.Amount, t.TransactionDate)
	return nil
}

type TransactionUpdateCmd struct {
	leaf
	ID int64 `long:"id" description:"transaction id" required:"true"`
	transactionFields
}

func (c *TransactionUpdateCmd) run(ctx context.Context, a *App, _ []string) error {
	if err := a.enter(ctx, guard.ViewTransactions); err != nil {
		return err
	}
	t, err := a.svc.Transactions.Update(ctx, c.ID, c.input())
	if err != nil {
		return err
	}
	if a.JSON {
		return a.printJSON(t)
	}
	fmt.Fprintf(a.out, "updated transaction %d %s on %s\n", t.ID, t.Amount, t.TransactionDate)
	return nil
}

type TransactionRemoveCmd struct {
	leaf
	Args struct {
		ID int64 `positional-arg-name:"id" required:"true"`
	} `positional-args:"yes"`
}

func (c *TransactionRemoveCmd) run(ctx context.Context, a *App, _ []string) error {
	if err := a.enter(ctx, guard.ViewTransactions); err != nil {
		return err
	}
	if err := a.svc.Transactions.Delete(ctx, c.Args.ID); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "deleted transaction %d\n", c.Args.ID)
	return nil
}
