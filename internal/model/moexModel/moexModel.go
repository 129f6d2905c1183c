package moexModel

// RawHistory mirrors the columns/data layout of the MOEX ISS history endpoint.
type RawHistory struct {
	History struct {
		Columns []string `json:"columns"`
		Data    [][]any  `json:"data"`
	} `json:"history"`
	Cursor struct {
		Columns []string `json:"columns"`
		Data    [][]any  `json:"data"`
	} `json:"history.cursor"`
}
