package apic

// APIC REST request/response shapes. Only the attributes this tool reads
// are modelled; everything else in the payloads is ignored.

// aaaUserRequest is the body for aaaLogin and aaaLogout.
type aaaUserRequest struct {
	AaaUser aaaUser `json:"aaaUser"`
}

type aaaUser struct {
	Attributes aaaUserAttributes `json:"attributes"`
}

type aaaUserAttributes struct {
	Name string `json:"name"`
	Pwd  string `json:"pwd,omitempty"`
}

// loginResponse is the subset of the aaaLogin reply used to seed the session.
type loginResponse struct {
	Imdata []struct {
		AaaLogin *struct {
			Attributes struct {
				Token string `json:"token"`
			} `json:"attributes"`
		} `json:"aaaLogin"`
	} `json:"imdata"`
}

// endpointClassResponse is the class query reply for fvCEp. Imdata is a
// pointer so a reply without the field can be told apart from an empty list.
// totalCount is left undecoded since controllers send it as a string or a number.
type endpointClassResponse struct {
	Imdata *[]endpointObject `json:"imdata"`
}

type endpointObject struct {
	FvCEp *struct {
		Attributes struct {
			DN string `json:"dn"`
		} `json:"attributes"`
	} `json:"fvCEp"`
}
