package domain

// Receipt is the confirmation record of a mined oracle update.
type Receipt struct {
	TransactionHash string            `json:"transactionHash"`
	BlockNumber     uint64            `json:"blockNumber"`
	BlockHash       string            `json:"blockHash"`
	From            string            `json:"from"`
	To              string            `json:"to"`
	Nonce           uint64            `json:"nonce"`
	GasPrice        string            `json:"gasPrice"`
	GasUsed         uint64            `json:"gasUsed"`
	Payload         SubmissionPayload `json:"payload"`
}

// RunResult is the uniform outcome of one orchestrator run.
type RunResult struct {
	Success bool            `json:"success"`
	JobID   string          `json:"jobId,omitempty"`
	Domain  Domain          `json:"domain"`
	Data    *EstimateResult `json:"data,omitempty"`
	Receipt *Receipt        `json:"receipt,omitempty"`
	Err     error           `json:"-"`
}
