package model

// DefaultServicePlans is the immutable plan catalog. IDs are referenced by
// promo restrictions and ledger records, so they must stay stable.
func DefaultServicePlans() []ServicePlan {
	return []ServicePlan{
		{
			ID:            "1m-unlimited",
			NameEN:        "1 Month Unlimited",
			NameMM:        "၁ လ အကန့်အသတ်မရှိ",
			Price:         10000,
			Currency:      "MMK",
			DurationEN:    "30 Days",
			DurationMM:    "၃၀ ရက်",
			Duration:      PlanOneMonth,
			DataLimitEN:   "Unlimited Data",
			DataLimitMM:   "အကန့်အသတ်မဲ့ဒေတာ",
			DescriptionEN: "High-speed unlimited data, perfect for streaming, gaming, and heavy browsing. No data caps.",
			DescriptionMM: "မြန်နှုန်းမြင့် အကန့်အသတ်မရှိ ဒေတာ။ ဗီဒီယိုကြည့်ခြင်း၊ ဂိမ်းဆော့ခြင်းနှင့် အသုံးပြုမှုများသူများအတွက် အထူးသင့်လျော်သည်။",
		},
		{
			ID:            "1m-100gb",
			NameEN:        "1 Month Lite",
			NameMM:        "၁ လ (100GB)",
			Price:         5000,
			Currency:      "MMK",
			DurationEN:    "30 Days",
			DurationMM:    "၃၀ ရက်",
			Duration:      PlanOneMonth,
			DataLimitEN:   "100 GB Data",
			DataLimitMM:   "100 GB ဒေတာ",
			DescriptionEN: "Affordable 100GB high-speed data. Great for social media, news, and daily browsing.",
			DescriptionMM: "ဈေးနှုန်းသက်သာသော 100GB မြန်နှုန်းမြင့်ဒေတာ။",
		},
		{
			ID:            "3m-unlimited",
			NameEN:        "3 Months Unlimited",
			NameMM:        "၃ လ အကန့်အသတ်မရှိ",
			Price:         27000,
			Currency:      "MMK",
			DurationEN:    "90 Days",
			DurationMM:    "၉၀ ရက်",
			Duration:      PlanThreeMonths,
			DataLimitEN:   "Unlimited Data",
			DataLimitMM:   "အကန့်အသတ်မဲ့ဒေတာ",
			DescriptionEN: "High-speed unlimited data, perfect for streaming, gaming, and heavy browsing. No data caps.",
			DescriptionMM: "မြန်နှုန်းမြင့် အကန့်အသတ်မရှိ ဒေတာ။",
		},
		{
			ID:            "3m-300gb",
			NameEN:        "3 Months Lite (300GB)",
			NameMM:        "၃ လ (300GB)",
			Price:         13500,
			Currency:      "MMK",
			DurationEN:    "90 Days",
			DurationMM:    "၉၀ ရက်",
			Duration:      PlanThreeMonths,
			DataLimitEN:   "300 GB Data",
			DataLimitMM:   "300 GB ဒေတာ",
			DescriptionEN: "Affordable 300GB high-speed data. Great for social media, news, and daily browsing.",
			DescriptionMM: "ဈေးနှုန်းသက်သာသော 300GB မြန်နှုန်းမြင့်ဒေတာ။",
		},
		{
			ID:            "6m-unlimited",
			NameEN:        "6 Months Unlimited",
			NameMM:        "၆ လ အကန့်အသတ်မရှိ",
			Price:         50000,
			Currency:      "MMK",
			DurationEN:    "180 Days",
			DurationMM:    "၁၈၀ ရက်",
			Duration:      PlanSixMonths,
			DataLimitEN:   "Unlimited Data",
			DataLimitMM:   "အကန့်အသတ်မဲ့ဒေတာ",
			DescriptionEN: "High-speed unlimited data, perfect for streaming, gaming, and heavy browsing. No data caps.",
			DescriptionMM: "မြန်နှုန်းမြင့် အကန့်အသတ်မရှိ ဒေတာ။",
		},
		{
			ID:            "6m-600gb",
			NameEN:        "6 Months Lite (600GB)",
			NameMM:        "၆ လ (600GB)",
			Price:         25000,
			Currency:      "MMK",
			DurationEN:    "180 Days",
			DurationMM:    "၁၈၀ ရက်",
			Duration:      PlanSixMonths,
			DataLimitEN:   "600 GB Data",
			DataLimitMM:   "600 GB ဒေတာ",
			DescriptionEN: "Affordable 600GB high-speed data. Great for social media, news, and daily browsing.",
			DescriptionMM: "ဈေးနှုန်းသက်သာသော 600GB မြန်နှုန်းမြင့်ဒေတာ။",
		},
	}
}

// DefaultPaymentMethods lists the accepted transfer channels. All route to
// the same canonical recipient.
func DefaultPaymentMethods() []PaymentMethod {
	return []PaymentMethod{
		{ID: "kbz", Name: "KPay (KBZ Pay)", Provider: "KBZ Pay", AccountName: "Moe Kyaw Aung", AccountNumber: "09766072220", Emoji: "💙"},
		{ID: "wave", Name: "Wave Money", Provider: "Wave Money", AccountName: "Moe Kyaw Aung", AccountNumber: "09766072220", Emoji: "💛"},
		{ID: "aya", Name: "Aya Pay", Provider: "Aya Pay", AccountName: "Moe Kyaw Aung", AccountNumber: "09766072220", Emoji: "💚"},
	}
}
