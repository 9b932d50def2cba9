package models

// Запросы к сервису анализа. Тело уходит на бэкенд как есть, структуры нужны
// только для валидации.

type ExtractNarratorsRequest struct {
	HadithText string `json:"hadith_text" validate:"required"`
}

type AnalyzeNarratorRequest struct {
	NarratorName string `json:"narrator_name" validate:"required"`
}

type ChainAnalysisRequest struct {
	SanadChain []string `json:"sanad_chain" validate:"required"`
}

type ExtractAndAnalyzeRequest struct {
	HadithText string `json:"hadith_text" validate:"required"`
}
