package stages

// ProtocolTitles is the canonical title of each of the thirteen protocol fields.
var ProtocolTitles = map[int]string{
	1:  "Identificação do Protocolo",
	2:  "Ficha Técnica e Responsabilidades",
	3:  "Definição, Epidemiologia e Conceitos Fundamentais",
	4:  "Critérios de Inclusão e Exclusão",
	5:  "Avaliação Inicial e Classificação de Risco/Gravidade",
	6:  "Diagnóstico",
	7:  "Tratamento",
	8:  "Manejo de Complicações",
	9:  "Critérios de Internação, Alta ou Encaminhamento",
	10: "Monitoramento e Seguimento Pós-Alta",
	11: "Considerações Especiais",
	12: "Indicadores de Qualidade Assistencial",
	13: "Referências Bibliográficas",
}

// ProtocolStages returns the five protocol stage definitions in order.
func ProtocolStages() []Stage {
	return []Stage{
		{
			ID:          "identification",
			Name:        "Identificação e Contexto",
			Description: "Metadados, responsabilidades e conceitos fundamentais",
			Fields:      []int{1, 2, 3},
			Prompt:      Compose("Identificação e Contexto", []int{1, 2, 3}, identificationGuidance),
		},
		{
			ID:          "clinical-criteria",
			Name:        "Critérios Clínicos",
			Description: "Inclusão/exclusão, avaliação inicial e diagnóstico",
			Fields:      []int{4, 5, 6},
			Prompt:      Compose("Critérios Clínicos", []int{4, 5, 6}, criteriaGuidance),
		},
		{
			ID:          "treatment",
			Name:        "Tratamento",
			Description: "Abordagem terapêutica e manejo de complicações",
			Fields:      []int{7, 8},
			Prompt:      Compose("Tratamento", []int{7, 8}, treatmentGuidance),
		},
		{
			ID:          "care-flow",
			Name:        "Fluxo Assistencial",
			Description: "Critérios de internação/alta e monitoramento",
			Fields:      []int{9, 10},
			Prompt:      Compose("Fluxo Assistencial", []int{9, 10}, careFlowGuidance),
		},
		{
			ID:          "quality",
			Name:        "Especificidades e Qualidade",
			Description: "Considerações especiais, indicadores e referências",
			Fields:      []int{11, 12, 13},
			Prompt:      Compose("Especificidades e Qualidade", []int{11, 12, 13}, qualityGuidance),
		},
	}
}

// Default returns the registry of the five protocol stages covering fields
// 1 through 13.
func Default() *Registry {
	r, err := New(ProtocolTitles, ProtocolStages()...)
	if err != nil {
		panic(err)
	}
	return r
}
