// Command seed provisions a tenant, its OAuth client config, and
// optionally an initial token set, so the broker can serve a deployment
// before the interactive authorization flow has ever run. Token expiry is
// computed with the same buffered arithmetic the broker itself uses.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-credential-broker/credentials"
	"github.com/jrsteele09/go-credential-broker/internal/config"
	"github.com/jrsteele09/go-credential-broker/providers"
	"github.com/jrsteele09/go-credential-broker/redisrepo"
	"github.com/jrsteele09/go-credential-broker/tenants"
	"github.com/jrsteele09/go-credential-broker/token"
)

func main() {
	tenantID := flag.String("tenant", "", "tenant id to provision (required)")
	tenantName := flag.String("tenant-name", "", "display name (defaults to the id)")
	providerName := flag.String("app", "goto", "provider name")
	clientID := flag.String("client-id", "", "OAuth client id (required)")
	clientSecret := flag.String("client-secret", "", "OAuth client secret (required)")
	redirectURI := flag.String("redirect-uri", "", "redirect URI handed to the authorize endpoint")
	accessToken := flag.String("access-token", "", "initial access token (optional)")
	refreshToken := flag.String("refresh-token", "", "initial refresh token (optional)")
	expiresIn := flag.Int64("expires-in", 3600, "initial token lifetime in seconds")
	scopes := flag.String("scopes", "", "space-separated granted scopes for the initial token")
	accountKey := flag.String("account-key", "", "provider account key override")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *tenantID == "" || *clientID == "" || *clientSecret == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := seed(*tenantID, *tenantName, *providerName, *clientID, *clientSecret, *redirectURI,
		*accessToken, *refreshToken, *expiresIn, *scopes, *accountKey); err != nil {
		log.Fatal().Err(err).Msg("Seeding failed")
	}
}

func seed(tenantID, tenantName, providerName, clientID, clientSecret, redirectURI,
	accessToken, refreshToken string, expiresIn int64, scopes, accountKey string) error {
	c := config.New()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := redisrepo.New(ctx, redisrepo.Options{
		Addr:      c.GetRedisAddr(),
		Password:  c.GetRedisPassword(),
		DB:        c.GetRedisDB(),
		KeyPrefix: c.GetRedisKeyPrefix(),
	})
	if err != nil {
		return fmt.Errorf("redisrepo.New: %w", err)
	}
	defer store.Close()

	def, err := providers.Default().Get(providerName)
	if err != nil {
		return err
	}

	if tenantName == "" {
		tenantName = tenantID
	}
	if err := store.Tenants().Upsert(ctx, &tenants.Tenant{
		ID:              tenantID,
		Name:            tenantName,
		PrimaryProvider: providerName,
	}); err != nil {
		return err
	}
	log.Info().Str("tenant", tenantID).Msg("Tenant provisioned")

	if err := store.PutClientConfig(ctx, tenantID, providerName, &credentials.ClientConfig{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURI:  redirectURI,
	}); err != nil {
		return err
	}
	if err := store.PutSettings(ctx, tenantID, providerName, &credentials.ProviderSettings{
		Status:      credentials.StatusActive,
		SyncEnabled: true,
		AccountKey:  accountKey,
	}); err != nil {
		return err
	}
	log.Info().Str("tenant", tenantID).Str("provider", providerName).Msg("Client config provisioned")

	if accessToken == "" {
		return nil
	}

	scopeList := strings.Fields(scopes)
	now := time.Now()
	record := &credentials.TokenRecord{
		AccessToken:    accessToken,
		RefreshToken:   refreshToken,
		TokenType:      def.ClassifyScope(scopeList),
		Scopes:         scopeList,
		IssuedAt:       now,
		ExpiresIn:      expiresIn,
		AbsoluteExpiry: token.ComputeExpiry(now, token.EffectiveExpiresIn(accessToken, now, expiresIn), c.GetRefreshBuffer()),
		AccountKey:     accountKey,
	}
	if err := store.PutToken(ctx, tenantID, providerName, record); err != nil {
		return err
	}

	log.Info().
		Str("tenant", tenantID).
		Str("provider", providerName).
		Str("token_type", string(record.TokenType)).
		Time("absolute_expiry", record.AbsoluteExpiry).
		Msg("Token seeded")
	if !now.Before(record.AbsoluteExpiry) {
		log.Warn().Str("tenant", tenantID).Msg("Seeded token is already stale under the refresh buffer; first use will refresh it")
	}
	return nil
}
