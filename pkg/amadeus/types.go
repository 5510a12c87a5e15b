package amadeus

// 以下为供应商的原始响应结构，只保留用到的字段

type tokenResponse struct {
	TokenType   string `json:"token_type"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	State       string `json:"state"`
}

// FlightOffersResponse /v2/shopping/flight-offers
type FlightOffersResponse struct {
	Meta         responseMeta  `json:"meta"`
	Data         []FlightOffer `json:"data"`
	Dictionaries *dictionaries `json:"dictionaries,omitempty"`
}

type responseMeta struct {
	Count int `json:"count"`
}

type dictionaries struct {
	Carriers map[string]string `json:"carriers,omitempty"`
}

// FlightOffer 原始报价
type FlightOffer struct {
	Type                  string      `json:"type"`
	ID                    string      `json:"id"`
	Source                string      `json:"source"`
	LastTicketingDate     string      `json:"lastTicketingDate,omitempty"`
	NumberOfBookableSeats int         `json:"numberOfBookableSeats,omitempty"`
	Itineraries           []Itinerary `json:"itineraries"`
	Price                 Price       `json:"price"`
}

// Itinerary 一个方向的行程，Duration 为 ISO-8601 字符串，如 PT6H10M
type Itinerary struct {
	Duration string    `json:"duration"`
	Segments []Segment `json:"segments"`
}

type Segment struct {
	Departure     Endpoint `json:"departure"`
	Arrival       Endpoint `json:"arrival"`
	CarrierCode   string   `json:"carrierCode"`
	Number        string   `json:"number"`
	Duration      string   `json:"duration"`
	ID            string   `json:"id"`
	NumberOfStops int      `json:"numberOfStops"`
}

type Endpoint struct {
	IATACode string `json:"iataCode"`
	Terminal string `json:"terminal,omitempty"`
	At       string `json:"at"`
}

type Price struct {
	Currency   string `json:"currency"`
	Total      string `json:"total"`
	Base       string `json:"base"`
	GrandTotal string `json:"grandTotal"`
}

// LocationsResponse /v1/reference-data/locations
type LocationsResponse struct {
	Meta responseMeta `json:"meta"`
	Data []Location   `json:"data"`
}

type Location struct {
	Type         string           `json:"type"`
	SubType      string           `json:"subType"`
	Name         string           `json:"name"`
	DetailedName string           `json:"detailedName,omitempty"`
	ID           string           `json:"id"`
	IATACode     string           `json:"iataCode"`
	Address      *locationAddress `json:"address,omitempty"`
}

type locationAddress struct {
	CityName    string `json:"cityName"`
	CityCode    string `json:"cityCode,omitempty"`
	CountryName string `json:"countryName"`
	CountryCode string `json:"countryCode"`
}
