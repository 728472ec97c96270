package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"RendaBot/internal/engine"
	"RendaBot/internal/extract"
	"RendaBot/internal/recorder"
)

// FormatSummary renders a finished run as a Telegram message.
func FormatSummary(s *engine.Summary) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("🏦 <b>RendaBot</b> | %s\n\n", s.StartedAt.Local().Format("02/01/2006 15:04")))
	if s.Error != "" {
		b.WriteString(fmt.Sprintf("❌ <b>Execução com erro:</b> %s\n\n", html.EscapeString(s.Error)))
	}
	b.WriteString(fmt.Sprintf("Saldo inicial: %s\n", extract.FormatMoney(s.StartBalance)))
	b.WriteString(fmt.Sprintf("Saldo final: %s\n", extract.FormatMoney(s.EndBalance)))
	b.WriteString(fmt.Sprintf("CDI: %.2f%%\n\n", s.CDI))

	if len(s.Purchases) > 0 {
		b.WriteString("✅ <b>Compras:</b>\n")
		for _, p := range s.Purchases {
			b.WriteString(fmt.Sprintf("  %s (%s)\n", html.EscapeString(p.AssetName), p.Class))
			b.WriteString(fmt.Sprintf("    %s | %s | %s\n", extract.FormatMoney(p.AppliedAmount), p.ContractedRate, p.EffectiveRate))
		}
		b.WriteString("\n")
	}

	for _, c := range s.Classes {
		if c.Outcome == engine.OutcomePurchased {
			continue
		}
		icon := "⏭"
		if c.Outcome == engine.OutcomeFailed {
			icon = "⚠️"
		}
		b.WriteString(fmt.Sprintf("%s %s: %s", icon, c.Class.Upper(), c.Outcome))
		if c.Reason != "" {
			b.WriteString(" (" + html.EscapeString(c.Reason) + ")")
		}
		b.WriteString("\n")
	}

	if len(s.Averages) > 0 {
		b.WriteString("\n📊 <b>Taxas médias:</b>\n")
		for _, a := range s.Averages {
			b.WriteString(fmt.Sprintf("  %s: %s (%d ofertas)\n", strings.ToUpper(a.Class), a.Formatted, a.Count))
		}
	}

	b.WriteString(fmt.Sprintf("\nCompradas %d | falhas %d | ignoradas %d | %s",
		s.Purchased, s.Failed, s.Skipped, s.Duration().Round(time.Second)))
	return b.String()
}

// FormatLastRun renders the journaled run shown by /status.
func FormatLastRun(evt *recorder.RunEvent) string {
	if evt == nil {
		return "Nenhuma execução registrada ainda."
	}
	var b strings.Builder
	b.WriteString("📦 <b>Última execução</b>\n\n")
	b.WriteString(fmt.Sprintf("Início: %s\n", evt.StartedAt.Local().Format("02/01/2006 15:04")))
	b.WriteString(fmt.Sprintf("Duração: %s\n", evt.FinishedAt.Sub(evt.StartedAt).Round(time.Second)))
	b.WriteString(fmt.Sprintf("Saldo: %s\n", extract.FormatMoney(evt.Balance)))
	b.WriteString(fmt.Sprintf("Compradas %d | falhas %d | ignoradas %d\n", evt.Purchased, evt.Failed, evt.Skipped))
	if evt.Error != "" {
		b.WriteString(fmt.Sprintf("Erro: %s\n", html.EscapeString(evt.Error)))
	}
	return b.String()
}

// HelpText lists the bot commands.
func HelpText() string {
	return "Comandos disponíveis:\n• /run executar agora\n• /status última execução\n• /saldo saldo em cache"
}
