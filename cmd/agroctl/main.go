package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/Donatto293/agroconexion-client/internal/api"
	"github.com/Donatto293/agroconexion-client/internal/cart"
	"github.com/Donatto293/agroconexion-client/internal/config"
	"github.com/Donatto293/agroconexion-client/internal/favorites"
	"github.com/Donatto293/agroconexion-client/internal/session"
	"github.com/Donatto293/agroconexion-client/internal/sessionsync"
	"github.com/Donatto293/agroconexion-client/internal/tokenstore"
)

// app bundles the wired client pieces for the subcommands.
type app struct {
	manager   *session.Manager
	cart      *cart.Store
	favorites *favorites.Store
	client    *api.Client
}

func main() {
	cmd := flag.String("cmd", "whoami", "Command: login|login2fa|logout|whoami|browse|cart|cart-add|cart-rm|fav|fav-add|fav-rm|checkout")
	user := flag.String("user", "", "Username (login)")
	pass := flag.String("pass", "", "Password (login)")
	email := flag.String("email", "", "Email (login2fa)")
	code := flag.String("code", "", "2FA code (login2fa)")
	id := flag.String("id", "", "Product ID (cart-add/cart-rm/fav-add/fav-rm)")
	flag.Parse()

	// .env is optional for the CLI; real deployments use the environment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger := log.New(os.Stderr, "agroctl: ", log.LstdFlags)

	store, err := tokenstore.NewFileStore(cfg.TokenFile, cfg.TokenFilePassphrase)
	if err != nil {
		fmt.Fprintln(os.Stderr, "token store:", err)
		os.Exit(1)
	}

	manager := session.NewManager(store, func(ts api.TokenSource, h api.UnauthorizedHandler) *api.Client {
		return api.NewClient(cfg.APIBaseURL, time.Duration(cfg.HTTPTimeoutSeconds)*time.Second, ts, h)
	}, logger)

	cartStore := cart.NewStore(manager.Client(), store, logger)
	favStore := favorites.NewStore(manager.Client())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Duration(cfg.HTTPTimeoutSeconds)*time.Second)
	defer cancel()

	syncer := sessionsync.New(cartStore, favStore, logger)
	manager.OnTokenChange(syncer.OnTokenChange(ctx))

	// Restore any persisted session before running the command. A
	// transient verify failure is fine here; the command will surface
	// its own error if it needs auth.
	if err := manager.LoadSession(ctx); err != nil {
		logger.Printf("session restore: %v", err)
	}

	a := &app{manager: manager, cart: cartStore, favorites: favStore, client: manager.Client()}

	if err := a.run(ctx, *cmd, *user, *pass, *email, *code, *id); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, cmd, user, pass, email, code, id string) error {
	switch cmd {
	case "login":
		if user == "" || pass == "" {
			return fmt.Errorf("--user and --pass required")
		}
		res, err := a.manager.Login(ctx, user, pass)
		if err != nil {
			return err
		}
		switch res.Status {
		case api.LoginSuccess:
			fmt.Println("Logged in as", username(a.manager))
		case api.LoginNeedVerification:
			fmt.Println("Account not verified:", res.Message)
		case api.LoginNeed2FA:
			fmt.Println("2FA required:", res.Message)
			fmt.Println("Run: agroctl -cmd login2fa -email <email> -code <code>")
		}
		return nil

	case "login2fa":
		if email == "" || code == "" {
			return fmt.Errorf("--email and --code required")
		}
		if err := a.manager.LoginStep2(ctx, email, code); err != nil {
			return err
		}
		fmt.Println("Logged in as", username(a.manager))
		return nil

	case "logout":
		if err := a.manager.Logout(ctx); err != nil {
			return err
		}
		fmt.Println("Logged out")
		return nil

	case "whoami":
		u := a.manager.User()
		if u == nil {
			fmt.Println("Not logged in")
			return nil
		}
		fmt.Printf("%s <%s> (status: %s)\n", u.Username, u.Email, a.manager.Status())
		return nil

	case "browse":
		products, err := a.client.GetProducts(ctx)
		if err != nil {
			return err
		}
		for _, p := range products {
			fmt.Printf("%6d  %-30s  $%d (stock %d)\n", p.ID, p.Name, p.Price, p.Stock)
		}
		return nil

	case "cart":
		for _, it := range a.cart.Items() {
			fmt.Printf("%6d  %-30s  x%d  $%d\n", it.ProductID, it.Product.Name, it.Quantity, it.Subtotal())
		}
		fmt.Println("Total:", a.cart.Total())
		return nil

	case "cart-add":
		productID, err := parseID(id)
		if err != nil {
			return err
		}
		p, err := a.client.GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		return a.cart.Add(ctx, *p)

	case "cart-rm":
		productID, err := parseID(id)
		if err != nil {
			return err
		}
		return a.cart.Remove(ctx, productID)

	case "fav":
		for _, e := range a.favorites.Entries() {
			fmt.Printf("%6d  %s\n", e.Product.ID, e.Product.Name)
		}
		return nil

	case "fav-add":
		productID, err := parseID(id)
		if err != nil {
			return err
		}
		return a.favorites.Add(ctx, productID)

	case "fav-rm":
		productID, err := parseID(id)
		if err != nil {
			return err
		}
		return a.favorites.Remove(ctx, productID)

	case "checkout":
		inv, err := a.cart.Checkout(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Invoice #%d, total $%d\n", inv.ID, inv.Total)
		return nil

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func username(m *session.Manager) string {
	if u := m.User(); u != nil {
		return u.Username
	}
	return "(unknown)"
}

func parseID(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("--id required")
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid --id %q", s)
	}
	return id, nil
}
