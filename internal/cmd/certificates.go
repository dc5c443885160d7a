package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/certmint/certmint/internal"
	"github.com/certmint/certmint/internal/config"
	"github.com/certmint/certmint/internal/server/certificates"
	"github.com/certmint/certmint/internal/server/data"
	"github.com/certmint/certmint/internal/server/models"
	"github.com/certmint/certmint/uid"
)

func newCertificatesCmd(cli *CLI, opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "certificates",
		Aliases: []string{"certs"},
		Short:   "Manage certificates",
	}

	cmd.AddCommand(
		newCertificatesListCmd(cli, opts),
		newCertificatesCreateCmd(cli, opts),
		newCertificatesImportCmd(cli, opts),
		newCertificatesDeleteCmd(cli, opts),
	)

	return cmd
}

type certificateRow struct {
	Name     string `header:"NAME"`
	Issuer   string `header:"ISSUER"`
	Owner    string `header:"OWNER"`
	Active   bool   `header:"ACTIVE"`
	NotAfter string `header:"EXPIRES"`
}

func newCertificatesListCmd(cli *CLI, opts *rootOptions) *cobra.Command {
	var (
		filter    string
		show      bool
		user      string
		timeRange int
		sortBy    string
		desc      bool
		page      int
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List certificates",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, db, err := newService(opts)
			if err != nil {
				return err
			}

			var caller *models.User
			if show {
				if user == "" {
					return fmt.Errorf("--show requires --user")
				}
				caller, err = data.GetUser(db, data.ByEmail(user))
				if err != nil {
					return err
				}
			}

			p := &models.Pagination{Page: page, Limit: limit}
			certs, err := svc.Render(caller, data.CertificatesQuery{
				Filter:     filter,
				Show:       show,
				TimeRange:  timeRange,
				SortBy:     sortBy,
				Descending: desc,
			}, p)
			if err != nil {
				return err
			}

			rows := make([]certificateRow, 0, len(certs))
			for _, c := range certs {
				rows = append(rows, certificateRow{
					Name:     c.Name,
					Issuer:   c.Issuer,
					Owner:    c.Owner,
					Active:   c.Active,
					NotAfter: c.NotAfter.Format("2006-01-02"),
				})
			}
			cli.Table(rows)
			cli.Output("\nshowing %d of %d", len(rows), p.TotalCount)
			return nil
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "Filter terms, e.g. 'issuer;myca' or 'owner;team@example.com'")
	cmd.Flags().BoolVar(&show, "show", false, "Only certificates visible to --user")
	cmd.Flags().StringVar(&user, "user", "", "Email of the calling user")
	cmd.Flags().IntVar(&timeRange, "time-range", 0, "Only certificates expiring within this many weeks")
	cmd.Flags().StringVar(&sortBy, "sort", "", "Sort field")
	cmd.Flags().BoolVar(&desc, "desc", false, "Sort descending")
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&limit, "limit", 50, "Page size")

	return cmd
}

func newCertificatesCreateCmd(cli *CLI, opts *rootOptions) *cobra.Command {
	var (
		authority string
		name      string
		owner     string
		user      string
		validity  int
		sans      []string
		subject   certificates.SubjectOptions
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Issue a new certificate",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, db, err := newService(opts)
			if err != nil {
				return err
			}

			caller, err := resolveUser(db, user)
			if err != nil {
				return err
			}

			extensions := certificates.ExtensionOptions{}
			for _, san := range sans {
				extensions.SubAltNames = append(extensions.SubAltNames, certificates.AltName{
					NameType: certificates.AltNameTypeDNS,
					Value:    san,
				})
			}

			cert, err := svc.Create(cmd.Context(), caller, certificates.MintOptions{
				Authority:    authority,
				Subject:      subject,
				Extensions:   extensions,
				ValidityDays: validity,
				Owner:        owner,
				Name:         name,
			})
			if err != nil {
				return err
			}

			cli.Output("created certificate %q (%s)", cert.Name, cert.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&authority, "authority", "", "Authority to issue from")
	cmd.Flags().StringVar(&subject.CommonName, "common-name", "", "Certificate common name")
	cmd.Flags().StringVar(&subject.Organization, "organization", "", "Subject organization")
	cmd.Flags().StringVar(&subject.OrganizationalUnit, "organizational-unit", "", "Subject organizational unit")
	cmd.Flags().StringVar(&subject.Country, "country", "", "Subject country")
	cmd.Flags().StringVar(&subject.State, "state", "", "Subject state or province")
	cmd.Flags().StringVar(&subject.Location, "location", "", "Subject locality")
	cmd.Flags().StringSliceVar(&sans, "san", nil, "DNS subject alternative name (repeatable)")
	cmd.Flags().StringVar(&owner, "owner", "", "Owning team email")
	cmd.Flags().StringVar(&user, "user", "", "Email of the requesting user")
	cmd.Flags().StringVar(&name, "name", "", "Override the generated certificate name")
	cmd.Flags().IntVar(&validity, "validity-days", 365, "Requested validity period in days")

	for _, required := range []string{"authority", "common-name", "owner", "user"} {
		if err := cmd.MarkFlagRequired(required); err != nil {
			panic(err)
		}
	}

	return cmd
}

func newCertificatesImportCmd(cli *CLI, opts *rootOptions) *cobra.Command {
	var (
		bodyFile string
		owner    string
		creator  string
		name     string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Track a certificate issued elsewhere",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := newService(opts)
			if err != nil {
				return err
			}

			body, err := os.ReadFile(bodyFile)
			if err != nil {
				return err
			}

			cert, err := svc.Import(certificates.ImportOptions{
				Body:    string(body),
				Owner:   owner,
				Creator: creator,
				Name:    name,
			})
			if err != nil {
				if errors.Is(err, internal.ErrDuplicate) {
					return fmt.Errorf("already tracked: %w", err)
				}
				return err
			}

			cli.Output("imported certificate %q (%s)", cert.Name, cert.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&bodyFile, "body", "", "Path to the PEM certificate")
	cmd.Flags().StringVar(&owner, "owner", "", "Owning team email")
	cmd.Flags().StringVar(&creator, "creator", "", "Email of the importing user")
	cmd.Flags().StringVar(&name, "name", "", "Override the generated certificate name")

	for _, required := range []string{"body", "owner", "creator"} {
		if err := cmd.MarkFlagRequired(required); err != nil {
			panic(err)
		}
	}

	return cmd
}

func newCertificatesDeleteCmd(cli *CLI, opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a certificate record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := newService(opts)
			if err != nil {
				return err
			}

			cert, err := svc.GetByName(args[0])
			if err != nil {
				return err
			}

			if err := svc.Delete(cert.ID); err != nil {
				return err
			}

			cli.Output("deleted certificate %q", cert.Name)
			return nil
		},
	}

	return cmd
}

func newStatsCmd(cli *CLI, opts *rootOptions) *cobra.Command {
	var (
		metric        string
		activeOnly    bool
		destinationID string
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show grouped certificate counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := newService(opts)
			if err != nil {
				return err
			}

			statsOpts := data.StatsOptions{Metric: metric, ActiveListeners: activeOnly}
			if destinationID != "" {
				id, err := uid.Parse([]byte(destinationID))
				if err != nil {
					return err
				}
				statsOpts.DestinationID = id
			}

			stats, err := svc.Stats(statsOpts)
			if err != nil {
				return err
			}

			type statRow struct {
				Label string `header:"LABEL"`
				Count int    `header:"COUNT"`
			}
			rows := make([]statRow, 0, len(stats.Labels))
			for i, label := range stats.Labels {
				rows = append(rows, statRow{Label: label, Count: stats.Values[i]})
			}
			cli.Table(rows)
			return nil
		},
	}

	cmd.Flags().StringVar(&metric, "metric", "issuer", "Grouping field, or 'not_after' for the expiry report")
	cmd.Flags().BoolVar(&activeOnly, "active-listeners", false, "Only count certificates attached to a listener")
	cmd.Flags().StringVar(&destinationID, "destination", "", "Only count certificates on this destination id")

	return cmd
}

// newService opens the database and wires the certificate service from the
// config file.
func newService(opts *rootOptions) (*certificates.Service, *gorm.DB, error) {
	db, cfg, err := openDatabase(opts)
	if err != nil {
		return nil, nil, err
	}

	if err := config.Import(db, cfg); err != nil {
		return nil, nil, err
	}

	registry, err := config.BuildIssuerRegistry(cfg.Authorities)
	if err != nil {
		return nil, nil, err
	}

	sync, err := config.BuildDestinationRegistry(cfg.Destinations)
	if err != nil {
		return nil, nil, err
	}

	return certificates.NewService(db, registry, sync), db, nil
}

// resolveUser finds the user by email, creating the record on first use.
func resolveUser(db *gorm.DB, email string) (*models.User, error) {
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("a user email is required")
	}

	user, err := data.GetUser(db, data.ByEmail(email))
	switch {
	case err == nil:
		return user, nil
	case errors.Is(err, internal.ErrNotFound):
		user = &models.User{Email: email}
		if err := data.CreateUser(db, user); err != nil {
			return nil, err
		}
		return user, nil
	default:
		return nil, err
	}
}
