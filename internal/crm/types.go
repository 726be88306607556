package crm

// Product is a CRM catalog entry used to price fertilizer line items.
type Product struct {
	ID        string
	Name      string
	Code      string
	UnitPrice float64
}

// Deal is a CRM deal row as returned by the paginated listing.
type Deal struct {
	ID        string `json:"id"`
	SourceRef string `json:"Source_Ref"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	APIDomain   string `json:"api_domain"`
}

type recordRef struct {
	ID string `json:"id"`
}

type recordDetails struct {
	ID string `json:"id"`
}

type recordResult struct {
	Code    string        `json:"code"`
	Status  string        `json:"status"`
	Message string        `json:"message"`
	Details recordDetails `json:"details"`
}

type mutationResponse struct {
	Data []recordResult `json:"data"`
}

type searchResponse struct {
	Data []recordRef `json:"data"`
}

type productRecord struct {
	ID        string  `json:"id"`
	Name      string  `json:"Product_Name"`
	Code      string  `json:"Product_Code"`
	UnitPrice float64 `json:"Unit_Price"`
}

type productListResponse struct {
	Data []productRecord `json:"data"`
}

type dealListResponse struct {
	Data []Deal `json:"data"`
}

type contactPayload struct {
	LastName    string     `json:"Last_Name"`
	FirstName   string     `json:"First_Name"`
	Phone       string     `json:"Phone"`
	LeadSource  string     `json:"Lead_Source"`
	AccountName *recordRef `json:"Account_Name,omitempty"`
}

type contactRequest struct {
	Data []contactPayload `json:"data"`
}

type leadLineItem struct {
	Item recordRef `json:"Item"`
	Qty  int       `json:"Qty"`
}

type leadPayload struct {
	FirstName   string         `json:"First_Name"`
	LastName    string         `json:"Last_Name"`
	Contact     recordRef      `json:"Contact"`
	CropsGrown  string         `json:"Crops_Grown"`
	FarmName    string         `json:"Farm_Name"`
	FarmSize    string         `json:"Size_of_Farm_hectares"`
	Description string         `json:"Description"`
	Products    []leadLineItem `json:"Product_Data"`
	Amount      int            `json:"Amount"`
	Location    string         `json:"Location"`
	LeadStatus  string         `json:"Lead_Status"`
	Country     string         `json:"Country"`
	LeadSource  string         `json:"Lead_Source"`
	Phone       string         `json:"Phone"`
}

type leadRequest struct {
	Data []leadPayload `json:"data"`
}
