package handlers

// Response items of the /action envelope. Each carries a "type"
// discriminator the front end switches on. A redirect, when present, is
// always the only item in a response.

type MessageItem struct {
	Type string `json:"type"`
	Code int    `json:"code"`
	Text string `json:"text"`
}

type VCountItem struct {
	Type  string `json:"type"`
	VType int    `json:"vtype"`
	Count int    `json:"count"`
}

type LocationItem struct {
	Type string `json:"type"`
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type TotalItem struct {
	Type  string `json:"type"`
	Total int    `json:"total"`
}

type RedirectItem struct {
	Type  string `json:"type"`
	Where string `json:"where"`
}

func Message(code int, text string) MessageItem {
	return MessageItem{Type: "message", Code: code, Text: text}
}

func VCount(vtype, count int) VCountItem {
	return VCountItem{Type: "vcount", VType: vtype, Count: count}
}

func LocationEntry(id int64, name string) LocationItem {
	return LocationItem{Type: "location", ID: id, Name: name}
}

func Total(total int) TotalItem {
	return TotalItem{Type: "total", Total: total}
}

func Redirect(where string) RedirectItem {
	return RedirectItem{Type: "redirect", Where: where}
}
