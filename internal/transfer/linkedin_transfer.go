package transfer

type LinkedInErrorResponse struct {
	Status           int    `json:"status"`
	ServiceErrorCode int    `json:"serviceErrorCode"`
	Code             string `json:"code"`
	Message          string `json:"message"`
}

type LinkedInInitializeUpload struct {
	InitializeUploadRequest LinkedInUploadRequest `json:"initializeUploadRequest"`
}

type LinkedInUploadRequest struct {
	Owner           string `json:"owner"`
	FileSizeBytes   int64  `json:"fileSizeBytes,omitempty"`
	UploadCaptions  *bool  `json:"uploadCaptions,omitempty"`
	UploadThumbnail *bool  `json:"uploadThumbnail,omitempty"`
}

type LinkedInImageUpload struct {
	Value struct {
		UploadURL string `json:"uploadUrl"`
		Image     string `json:"image"`
	} `json:"value"`
}

type LinkedInVideoUpload struct {
	Value struct {
		Video              string `json:"video"`
		UploadToken        string `json:"uploadToken"`
		UploadInstructions []struct {
			UploadURL string `json:"uploadUrl"`
			FirstByte int64  `json:"firstByte"`
			LastByte  int64  `json:"lastByte"`
		} `json:"uploadInstructions"`
	} `json:"value"`
}

type LinkedInFinalizeUpload struct {
	FinalizeUploadRequest struct {
		Video           string   `json:"video"`
		UploadToken     string   `json:"uploadToken"`
		UploadedPartIDs []string `json:"uploadedPartIds"`
	} `json:"finalizeUploadRequest"`
}

type LinkedInPost struct {
	Author                    string               `json:"author"`
	Commentary                string               `json:"commentary"`
	Visibility                string               `json:"visibility"`
	Distribution              LinkedInDistribution `json:"distribution"`
	Content                   *LinkedInContent     `json:"content,omitempty"`
	LifecycleState            string               `json:"lifecycleState"`
	IsReshareDisabledByAuthor bool                 `json:"isReshareDisabledByAuthor"`
}

type LinkedInDistribution struct {
	FeedDistribution               string   `json:"feedDistribution"`
	TargetEntities                 []string `json:"targetEntities"`
	ThirdPartyDistributionChannels []string `json:"thirdPartyDistributionChannels"`
}

type LinkedInContent struct {
	Media      *LinkedInMedia      `json:"media,omitempty"`
	MultiImage *LinkedInMultiImage `json:"multiImage,omitempty"`
	Poll       *LinkedInPoll       `json:"poll,omitempty"`
}

type LinkedInMedia struct {
	ID string `json:"id"`
}

type LinkedInMultiImage struct {
	Images []LinkedInMedia `json:"images"`
}

type LinkedInPoll struct {
	Question string               `json:"question"`
	Options  []LinkedInPollOption `json:"options"`
	Settings LinkedInPollSettings `json:"settings"`
}

type LinkedInPollOption struct {
	Text string `json:"text"`
}

type LinkedInPollSettings struct {
	Duration string `json:"duration"`
}
