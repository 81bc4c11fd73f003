package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// InstallmentAmount is debt/count rounded half-up to 2 decimal places.
func InstallmentAmount(debt decimal.Decimal, count int64) decimal.Decimal {
	return debt.DivRound(decimal.NewFromInt(count), 2)
}

func displayName(ctx Context) string {
	if ctx.Profile != nil && strings.TrimSpace(ctx.Profile.Name) != "" {
		return strings.TrimSpace(ctx.Profile.Name)
	}
	return "cliente"
}

func buildActions(cfg Config) []*Action {
	return []*Action{
		{
			ID:          ActionDebtInfo,
			Description: "Obtém informações sobre a dívida do cliente.",
			Eligible:    func(Context) bool { return true },
			Generate: func(ctx Context) string {
				p := ctx.Profile
				return fmt.Sprintf(
					"Vejo que você tem uma conta de R$ %s de %s, vencida no dia %s.",
					p.DebtAmount.StringFixed(2), p.DebtDescription, p.DueDate,
				)
			},
			EffectFor: constantEffect(EffectComplete),
		},
		{
			ID:          ActionPaymentOptions,
			Description: "Fornece opções de parcelamento para o cliente.",
			Eligible: func(ctx Context) bool {
				return ctx.Session.IsCompleted(ActionDebtInfo)
			},
			Generate: func(ctx Context) string {
				debt := ctx.Profile.DebtAmount
				return fmt.Sprintf(
					"Aqui estão as opções de parcelamento para o valor de R$ %s:\n"+
						"2 parcelas de R$ %s\n"+
						"4 parcelas de R$ %s\n"+
						"Qual opção você prefere?",
					debt.StringFixed(2),
					InstallmentAmount(debt, 2).StringFixed(2),
					InstallmentAmount(debt, 4).StringFixed(2),
				)
			},
			EffectFor:      constantEffect(EffectAwait),
			ParamActionID:  ActionConfirmPayment,
			ParamSlot:      SlotInstallmentOption,
			NormalizeParam: normalizeInstallmentOption,
		},
		{
			ID:          ActionConfirmPayment,
			Description: "Confirma o pagamento com base na opção escolhida.",
			Generate: func(ctx Context) string {
				option := ctx.Param
				if option == "" {
					option = ctx.Session.Slot(SlotInstallmentOption)
				}
				return fmt.Sprintf(
					"Perfeito, %s! Confirme, por favor: você vai parcelar a dívida em %s. Deseja confirmar a operação?",
					displayName(ctx), option,
				)
			},
			EffectFor:   constantEffect(EffectAwait),
			AcceptID:    ActionPaymentConfirmed,
			DeclineWith: []string{ActionPaymentOptions},
		},
		{
			ID:          ActionPaymentConfirmed,
			Description: "Informa que o pagamento foi confirmado.",
			Generate: func(ctx Context) string {
				return fmt.Sprintf(
					"Pagamento confirmado! Sua dívida foi parcelada em %s.",
					ctx.Session.Slot(SlotInstallmentOption),
				)
			},
			EffectFor: constantEffect(EffectComplete),
			PostFire: func(ctx Context) {
				ctx.Session.InstallmentOption = ctx.Session.Slot(SlotInstallmentOption)
			},
		},
		{
			ID:          ActionCardExpiryAlert,
			Description: "Alerta sobre o cartão que está para expirar.",
			Eligible: func(ctx Context) bool {
				return ctx.Profile.CardExpiresWithin(ctx.Now, cfg.CardExpiryHorizon)
			},
			Generate: func(ctx Context) string {
				p := ctx.Profile
				return fmt.Sprintf(
					"%s, notei que seu cartão cadastrado termina em %s e vai expirar em %s. Você gostaria de cadastrar outro cartão agora?",
					displayName(ctx), p.CardLastDigits, p.CardExpiryLabel(),
				)
			},
			EffectFor: constantEffect(EffectAwait),
			AcceptID:  ActionChargeAnyOffer,
		},
		{
			ID:          ActionChargeAnyOffer,
			Description: "Oferece a função Cobrar em Qualquer Cartão.",
			Eligible:    func(Context) bool { return true },
			Generate: func(Context) string {
				return "Além disso, você pode cadastrar mais de um cartão e ativar a função Cobrar em Qualquer Cartão. " +
					"Assim, se um cartão estiver sem limite, o sistema tenta automaticamente o outro. " +
					"Isso evita que seus serviços sejam suspensos por falta de pagamento. Deseja ativar?"
			},
			EffectFor: constantEffect(EffectAwait),
			AcceptID:  ActionChargeAnyActivated,
		},
		{
			ID:          ActionChargeAnyActivated,
			Description: "Confirma que a função Cobrar em Qualquer Cartão foi ativada.",
			Generate: func(Context) string {
				return "Função ativada com sucesso! Agora, se houver qualquer problema com limite de um cartão, " +
					"o outro será usado automaticamente. Isso garante que você continue utilizando seus serviços sem interrupções! 🎉"
			},
			EffectFor: constantEffect(EffectComplete),
		},
		{
			ID:          ActionDueDateSuggest,
			Description: "Sugere a mudança da data de vencimento.",
			Eligible: func(ctx Context) bool {
				return ctx.Profile.RecentLateCount >= cfg.DueDateLateThreshold
			},
			Generate: func(ctx Context) string {
				return fmt.Sprintf(
					"%s, percebi que seus últimos pagamentos foram feitos com atraso, próximos ao dia %d. "+
						"Para evitar futuros atrasos e custos extras, gostaria de sugerir uma troca na data de vencimento. "+
						"Você pode escolher uma data que seja mais conveniente.\nGostaria de ajustar o vencimento?",
					displayName(ctx), ctx.Profile.PreferredDueDay,
				)
			},
			EffectFor:      constantEffect(EffectAwait),
			AcceptID:       ActionDueDateChanged,
			ParamActionID:  ActionDueDateChanged,
			ParamSlot:      SlotDueDay,
			NormalizeParam: normalizeDueDay,
		},
		{
			ID:          ActionDueDateChanged,
			Description: "Confirma que a data de vencimento foi alterada.",
			Generate: func(ctx Context) string {
				day := ctx.Profile.PreferredDueDay
				if raw := ctx.Session.Slot(SlotDueDay); raw != "" {
					if n, err := strconv.Atoi(raw); err == nil {
						day = n
					}
				}
				return fmt.Sprintf(
					"Pronto! A partir da próxima fatura, o vencimento será no dia %d de cada mês. "+
						"Vou te enviar uma notificação de pagamento quando estiver próximo do vencimento. "+
						"Isso deve te ajudar a evitar atrasos e custos adicionais. 😉",
					day,
				)
			},
			EffectFor: constantEffect(EffectComplete),
		},
		{
			ID:          ActionInternetOffer,
			Description: "Oferece aumento de franquia de internet.",
			Eligible:    func(Context) bool { return true },
			Generate: func(ctx Context) string {
				offer, ok := ctx.Plans.FindByAllowance(cfg.InternetAllowance)
				if !ok {
					return "No momento, não temos planos adicionais disponíveis."
				}
				return fmt.Sprintf(
					"Com base no seu uso, você pode contratar o plano de %s de internet por apenas R$ %s mensais. Interessada?",
					offer.Allowance, offer.MonthlyPrice.StringFixed(2),
				)
			},
			EffectFor: func(ctx Context) Effect {
				// No matching plan: terminal message, nothing to confirm.
				if _, ok := ctx.Plans.FindByAllowance(cfg.InternetAllowance); !ok {
					return EffectComplete
				}
				return EffectAwait
			},
			AcceptID: ActionInternetActivated,
		},
		{
			ID:          ActionInternetActivated,
			Description: "Confirma que o pacote de internet foi ativado.",
			Generate: func(Context) string {
				return "Perfeito! Vou ativar a oferta para você e a partir do próximo mês terá a nova franquia disponível. " +
					"E se precisar de mais alguma coisa, estou sempre por aqui!"
			},
			EffectFor: constantEffect(EffectComplete),
		},
		{
			ID:          ActionAlertsOffer,
			Description: "Oferece alertas de consumo de dados.",
			Eligible:    func(Context) bool { return true },
			Generate: func(Context) string {
				return "Podemos te enviar notificações quando estiver perto de usar todo o seu pacote de dados " +
					"para evitar surpresas. Gostaria de ativar?"
			},
			EffectFor: constantEffect(EffectAwait),
			AcceptID:  ActionAlertsActivated,
		},
		{
			ID:          ActionAlertsActivated,
			Description: "Confirma que os alertas de consumo foram ativados.",
			Generate: func(Context) string {
				return "Alertas de consumo ativados com sucesso! Você receberá notificações quando estiver " +
					"perto de atingir sua franquia de dados."
			},
			EffectFor: constantEffect(EffectComplete),
		},
		{
			ID:          ActionConclude,
			Description: "Conclui a interação com o cliente.",
			// Last in scan order: reachable only when every earlier pair is
			// terminal (completed, declined, or never eligible).
			Eligible: func(Context) bool { return true },
			Generate: func(ctx Context) string {
				return fmt.Sprintf(
					"Tudo certo, %s! 🙌 Qualquer dúvida ou necessidade, estarei sempre disponível! 😊",
					displayName(ctx),
				)
			},
			EffectFor: constantEffect(EffectComplete),
			Concludes: true,
		},
	}
}

// normalizeInstallmentOption accepts "2", "4", "2 parcelas" etc. and returns
// the canonical option label.
func normalizeInstallmentOption(raw string) (string, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	raw = strings.TrimSuffix(raw, "parcelas")
	raw = strings.TrimSuffix(raw, "parcela")
	raw = strings.TrimSpace(raw)
	switch raw {
	case "2":
		return "2 parcelas", true
	case "4":
		return "4 parcelas", true
	}
	return "", false
}

// normalizeDueDay accepts a day of month between 1 and 28.
func normalizeDueDay(raw string) (string, bool) {
	raw = strings.TrimSpace(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(raw)), "dia"))
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > 28 {
		return "", false
	}
	return strconv.Itoa(n), true
}
